package papersources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/observability"
)

const (
	// DefaultDesiredCount is used when a request does not specify how many papers it wants.
	DefaultDesiredCount = 20

	// MaxDesiredCount caps the number of papers returned by a single aggregation.
	MaxDesiredCount = 50

	// PerProviderLimit is the largest page requested from a single provider.
	PerProviderLimit = 20
)

// ErrNoSourcesAvailable is returned when every provider failed and nothing was collected.
var ErrNoSourcesAvailable = errors.New("no bibliographic sources available")

// AggregateRequest describes one literature search.
type AggregateRequest struct {
	// Query is the research topic.
	Query string

	// Keywords are appended to the query, separated by spaces.
	Keywords []string

	// DesiredCount is the number of papers wanted. Zero or negative uses
	// DefaultDesiredCount; larger values are capped at MaxDesiredCount.
	DesiredCount int

	YearFrom *int
	YearTo   *int
}

// AggregatedResult is the deduplicated, capped, enriched outcome of an aggregation.
type AggregatedResult struct {
	// Papers in provider priority order, first occurrence of each identity key kept.
	Papers []domain.PaperBrief

	// Unavailable lists the providers that failed during this run.
	Unavailable []string
}

// Aggregator queries providers one at a time in priority order.
type Aggregator struct {
	searchers []Searcher
	enricher  Enricher
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewAggregator creates an aggregator. The order of searchers is the priority order:
// when two providers return the same paper, the earlier provider's record is kept.
// enricher and metrics may be nil.
func NewAggregator(searchers []Searcher, enricher Enricher, logger zerolog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		searchers: searchers,
		enricher:  enricher,
		logger:    logger.With().Str("component", "aggregator").Logger(),
		metrics:   metrics,
	}
}

// BuildQuery joins the topic and keywords into a single whitespace-normalized query.
func BuildQuery(query string, keywords []string) string {
	parts := make([]string, 0, len(keywords)+1)
	parts = append(parts, query)
	parts = append(parts, keywords...)
	return domain.NormalizeQuery(strings.Join(parts, " "))
}

// EffectiveCount applies the default and the cap to a requested paper count.
func EffectiveCount(desired int) int {
	switch {
	case desired <= 0:
		return DefaultDesiredCount
	case desired > MaxDesiredCount:
		return MaxDesiredCount
	default:
		return desired
	}
}

// Aggregate runs the search across all providers. Individual provider and enrichment
// failures are logged and absorbed; the only error is ErrNoSourcesAvailable (or a
// validation error for an empty query).
func (a *Aggregator) Aggregate(ctx context.Context, req AggregateRequest) (*AggregatedResult, error) {
	query := BuildQuery(req.Query, req.Keywords)
	if query == "" {
		return nil, domain.NewValidationError("query", "must not be empty")
	}
	desired := EffectiveCount(req.DesiredCount)

	availability := NewSourceAvailability()
	order := make([]string, 0, len(a.searchers))
	var collected []domain.PaperBrief
	var failures []error

	for _, s := range a.searchers {
		name := s.Name()
		order = append(order, name)

		if availability.IsUnavailable(name) || len(collected) >= desired {
			a.metrics.RecordSourceRequest(name, observability.OutcomeSkipped, 0)
			continue
		}

		limit := min(desired-len(collected), PerProviderLimit)
		availability.Increment(name)
		start := time.Now()

		papers, err := s.Search(ctx, SearchParams{
			Query:    query,
			Limit:    limit,
			YearFrom: req.YearFrom,
			YearTo:   req.YearTo,
		})
		elapsed := time.Since(start).Seconds()
		if err != nil {
			availability.MarkUnavailable(name)
			failures = append(failures, fmt.Errorf("%s: %w", name, err))
			a.metrics.RecordSourceRequest(name, observability.OutcomeError, elapsed)
			a.metrics.RecordSourceUnavailable(name)
			a.logger.Warn().Err(err).
				Str("source", name).
				Int("attempts", availability.AttemptCount(name)).
				Msg("provider search failed; marking unavailable")
			continue
		}

		a.metrics.RecordSourceRequest(name, observability.OutcomeSuccess, elapsed)
		a.logger.Debug().
			Str("source", name).
			Int("limit", limit).
			Int("returned", len(papers)).
			Msg("provider search completed")
		collected = append(collected, papers...)
	}

	unavailable := availability.Unavailable(order)
	if len(collected) == 0 && len(unavailable) == len(order) {
		a.metrics.RecordAggregation(observability.OutcomeError, 0)
		if len(failures) == 0 {
			return nil, ErrNoSourcesAvailable
		}
		return nil, fmt.Errorf("%w: %w", ErrNoSourcesAvailable, errors.Join(failures...))
	}

	papers := Deduplicate(collected, desired)
	a.enrich(ctx, papers)

	a.metrics.RecordAggregation(observability.OutcomeSuccess, len(papers))
	a.logger.Info().
		Str("query", query).
		Int("desired", desired).
		Int("collected", len(collected)).
		Int("returned", len(papers)).
		Strs("unavailable", unavailable).
		Msg("aggregation completed")

	return &AggregatedResult{Papers: papers, Unavailable: unavailable}, nil
}

// enrich fills empty URLs with open-access PDF links, in place.
func (a *Aggregator) enrich(ctx context.Context, papers []domain.PaperBrief) {
	if a.enricher == nil {
		return
	}
	for i := range papers {
		if papers[i].DOI == "" {
			continue
		}
		oa, ok := a.enricher.Enrich(ctx, papers[i].DOI)
		if !ok {
			a.metrics.RecordEnrichment(observability.OutcomeMiss)
			continue
		}
		a.metrics.RecordEnrichment(observability.OutcomeSuccess)
		if papers[i].URL == "" && oa.OAPDF != "" {
			papers[i].URL = oa.OAPDF
		}
	}
}
