package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobEvent is published whenever a job changes status.
type JobEvent struct {
	JobID      uuid.UUID `json:"job_id"`
	UserID     uuid.UUID `json:"user_id"`
	Type       string    `json:"type"`
	Status     JobStatus `json:"status"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewJobEvent builds an event describing the current state of job.
func NewJobEvent(job *Job, at time.Time) JobEvent {
	return JobEvent{
		JobID:      job.ID,
		UserID:     job.UserID,
		Type:       job.Type,
		Status:     job.Status,
		Message:    job.Message,
		OccurredAt: at.UTC(),
	}
}
