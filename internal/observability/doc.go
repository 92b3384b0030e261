// Package observability provides logging and metrics support for the
// research assistant service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//
// Request handlers derive a logger carrying the request and user IDs:
//
//	ctx = observability.WithRequestID(ctx, reqID)
//	log := observability.LoggerFromContext(ctx, logger)
//
// Background work adds job or workflow fields:
//
//	log = observability.WithJobContext(log, job.ID.String(), job.Type)
//
// Temporal clients and workers log through NewTemporalLogger.
//
// # Metrics
//
//	metrics := observability.NewMetrics(observability.DefaultNamespace)
//	metrics.RecordSourceRequest("openalex", observability.OutcomeSuccess, elapsed.Seconds())
//
// A nil *Metrics is valid and records nothing.
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - user_id: authenticated user
//   - source: bibliographic provider (semantic_scholar, openalex, crossref, unpaywall)
//   - job_id, job_type: background job
//   - workflow_id, workflow_run_id: Temporal execution
package observability
