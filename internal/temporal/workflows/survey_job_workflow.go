// Package workflows defines the Temporal workflows of background jobs.
package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/helixir/research-assistant-service/internal/features"
	lt "github.com/helixir/research-assistant-service/internal/temporal"
	"github.com/helixir/research-assistant-service/internal/temporal/activities"
)

const (
	statusActivityTimeout = 30 * time.Second
	surveyActivityTimeout = 5 * time.Minute
	surveyMaxAttempts     = 3
)

// SurveyJobWorkflow runs one asynchronous literature survey:
// MarkJobRunning, RunSurvey, then CompleteJob on success or FailJob with
// the error message. The workflow returns the survey error so the execution
// is marked failed in Temporal as well.
func SurveyJobWorkflow(ctx workflow.Context, input lt.SurveyJobInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("starting survey job", "jobID", input.JobID)

	statusCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: statusActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	})
	surveyCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: surveyActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    surveyMaxAttempts,
		},
	})

	var jobAct *activities.JobActivities
	var surveyAct *activities.SurveyActivities

	if err := workflow.ExecuteActivity(statusCtx, jobAct.MarkJobRunning, activities.JobRefInput{JobID: input.JobID}).Get(ctx, nil); err != nil {
		logger.Error("failed to mark job running", "jobID", input.JobID, "error", err)
		return err
	}

	var result *features.SurveyResponse
	surveyErr := workflow.ExecuteActivity(surveyCtx, surveyAct.RunSurvey, activities.RunSurveyInput{
		JobID:   input.JobID,
		UserID:  input.UserID,
		Request: input.Request,
	}).Get(ctx, &result)

	if surveyErr != nil {
		msg := failureMessage(surveyErr)
		logger.Warn("survey job failed", "jobID", input.JobID, "error", msg)
		if err := workflow.ExecuteActivity(statusCtx, jobAct.FailJob, activities.FailJobInput{
			JobID:   input.JobID,
			Message: msg,
		}).Get(ctx, nil); err != nil {
			logger.Error("failed to mark job failed", "jobID", input.JobID, "error", err)
		}
		return surveyErr
	}

	if err := workflow.ExecuteActivity(statusCtx, jobAct.CompleteJob, activities.CompleteJobInput{
		JobID:  input.JobID,
		Result: result,
	}).Get(ctx, nil); err != nil {
		logger.Error("failed to complete job", "jobID", input.JobID, "error", err)
		return err
	}

	logger.Info("survey job completed", "jobID", input.JobID)
	return nil
}

// failureMessage strips the activity wrapper from err so the job stores the
// message produced by the activity.
func failureMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}
