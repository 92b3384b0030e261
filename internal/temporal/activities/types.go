// Package activities provides the Temporal activities of survey jobs.
//
// Inputs and outputs cross the Temporal serialization boundary, so every field
// is exported and JSON-encodable.
package activities

import (
	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/features"
)

// JobRefInput identifies the job an activity acts on.
type JobRefInput struct {
	JobID uuid.UUID `json:"job_id"`
}

// RunSurveyInput contains the parameters of the survey activity.
type RunSurveyInput struct {
	JobID   uuid.UUID              `json:"job_id"`
	UserID  uuid.UUID              `json:"user_id"`
	Request features.SurveyRequest `json:"request"`
}

// CompleteJobInput carries the survey result to store on the job.
type CompleteJobInput struct {
	JobID  uuid.UUID                `json:"job_id"`
	Result *features.SurveyResponse `json:"result"`
}

// FailJobInput carries the failure message to store on the job.
type FailJobInput struct {
	JobID   uuid.UUID `json:"job_id"`
	Message string    `json:"message"`
}
