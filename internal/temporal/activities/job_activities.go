package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/events"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/repository"
)

// Application error types returned by the job activities.
const (
	ErrTypeJobFinished = "job_finished"
	ErrTypeJobNotFound = "job_not_found"
)

// JobActivities moves jobs through their lifecycle and announces each change.
// Methods on this struct are registered as Temporal activities via the worker.
type JobActivities struct {
	jobs      repository.JobRepository
	publisher events.Publisher
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewJobActivities creates JobActivities. The metrics parameter may be nil.
func NewJobActivities(jobs repository.JobRepository, publisher events.Publisher, metrics *observability.Metrics) *JobActivities {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &JobActivities{
		jobs:      jobs,
		publisher: publisher,
		metrics:   metrics,
		now:       time.Now,
	}
}

// MarkJobRunning moves a queued job to running.
func (a *JobActivities) MarkJobRunning(ctx context.Context, input JobRefInput) error {
	return a.transition(ctx, input, domain.JobStatusRunning, "", nil)
}

// CompleteJob stores the survey result and marks the job completed.
func (a *JobActivities) CompleteJob(ctx context.Context, input CompleteJobInput) error {
	result, err := json.Marshal(input.Result)
	if err != nil {
		return temporal.NewNonRetryableApplicationError("marshal survey result", "marshal_failed", err)
	}
	return a.transition(ctx, JobRefInput{JobID: input.JobID}, domain.JobStatusCompleted, "", result)
}

// FailJob records the failure message and marks the job failed.
func (a *JobActivities) FailJob(ctx context.Context, input FailJobInput) error {
	return a.transition(ctx, JobRefInput{JobID: input.JobID}, domain.JobStatusFailed, input.Message, nil)
}

func (a *JobActivities) transition(ctx context.Context, input JobRefInput, status domain.JobStatus, message string, result json.RawMessage) error {
	logger := activity.GetLogger(ctx)
	logger.Info("updating job status", "jobID", input.JobID, "status", status)

	job, err := a.jobs.UpdateStatus(ctx, input.JobID, status, message, result)
	switch {
	case errors.Is(err, domain.ErrJobFinished):
		// A retried activity whose first attempt already committed lands here too.
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("job %s already finished", input.JobID), ErrTypeJobFinished, err)
	case errors.Is(err, domain.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("job %s not found", input.JobID), ErrTypeJobNotFound, err)
	case err != nil:
		logger.Error("failed to update job status", "jobID", input.JobID, "status", status, "error", err)
		return fmt.Errorf("update job status to %s: %w", status, err)
	}

	a.metrics.RecordJobTransition(job.Type, string(status))

	// The status change is already committed; a lost event must not fail the job.
	if err := a.publisher.Publish(ctx, domain.NewJobEvent(job, a.now())); err != nil {
		logger.Warn("failed to publish job event", "jobID", input.JobID, "status", status, "error", err)
	}
	return nil
}
