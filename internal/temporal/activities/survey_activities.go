package activities

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/features"
	"github.com/helixir/research-assistant-service/internal/llm"
)

// ErrTypeSurveyRejected marks survey failures that a retry cannot fix.
const ErrTypeSurveyRejected = "survey_rejected"

// SurveyGenerator produces a literature survey for a user.
type SurveyGenerator interface {
	GenerateSurvey(ctx context.Context, userID uuid.UUID, req features.SurveyRequest) (*features.SurveyResponse, error)
}

// SurveyActivities runs the survey feature inside a job.
type SurveyActivities struct {
	surveys SurveyGenerator
}

// NewSurveyActivities creates SurveyActivities.
func NewSurveyActivities(surveys SurveyGenerator) *SurveyActivities {
	return &SurveyActivities{surveys: surveys}
}

// RunSurvey generates the survey. Input, ownership and permanent LLM errors
// are returned as non-retryable so the workflow fails the job at once.
func (a *SurveyActivities) RunSurvey(ctx context.Context, input RunSurveyInput) (*features.SurveyResponse, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("running survey", "jobID", input.JobID, "topic", input.Request.Topic)

	resp, err := a.surveys.GenerateSurvey(ctx, input.UserID, input.Request)
	if err != nil {
		logger.Warn("survey failed", "jobID", input.JobID, "error", err)
		if isPermanent(err) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeSurveyRejected, err)
		}
		return nil, err
	}

	logger.Info("survey finished", "jobID", input.JobID, "papers", len(resp.Papers))
	return resp, nil
}

// isPermanent reports whether retrying err is pointless.
func isPermanent(err error) bool {
	if errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrFeatureDisabled) {
		return true
	}
	var callErr *llm.CallError
	if errors.As(err, &callErr) {
		return !callErr.IsTransient()
	}
	// Provider outages and storage errors are worth another attempt.
	return false
}
