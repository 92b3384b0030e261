package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// JobRepository tracks background jobs.
type JobRepository interface {
	// Create inserts a job. The caller assigns the ID; the status defaults to queued.
	Create(ctx context.Context, job *domain.Job) error

	// Get returns domain.ErrNotFound when the job does not exist or belongs to another user.
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Job, error)

	// GetByID reads a job without an ownership check. Used by the worker.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// SetWorkflowID records the Temporal workflow executing the job.
	SetWorkflowID(ctx context.Context, id uuid.UUID, workflowID string) error

	// UpdateStatus moves a job to status and returns the updated row. A nil
	// result keeps the stored one. Returns domain.ErrJobFinished when the job
	// is already completed or failed, and domain.ErrNotFound when it does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, message string, result json.RawMessage) (*domain.Job, error)
}
