package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/research-assistant-service/internal/domain"
)

var _ JobRepository = (*PgJobRepository)(nil)

// PgJobRepository is a PostgreSQL implementation of JobRepository.
type PgJobRepository struct {
	db DBTX
}

// NewPgJobRepository creates a new PostgreSQL job repository.
func NewPgJobRepository(db DBTX) *PgJobRepository {
	return &PgJobRepository{db: db}
}

const jobColumns = `id, user_id, type, status, message, workflow_id, result, created_at, updated_at`

// Create inserts a job. An empty status is stored as queued.
func (r *PgJobRepository) Create(ctx context.Context, job *domain.Job) error {
	if job == nil {
		return domain.NewValidationError("job", "job cannot be nil")
	}
	if job.ID == uuid.Nil {
		return domain.NewValidationError("id", "job ID is required")
	}
	if job.UserID == uuid.Nil {
		return domain.NewValidationError("user_id", "user ID is required")
	}
	if job.Type == "" {
		return domain.NewValidationError("type", "job type is required")
	}
	if job.Status == "" {
		job.Status = domain.JobStatusQueued
	}

	query := `
		INSERT INTO jobs (id, user_id, type, status, message, workflow_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		job.ID, job.UserID, job.Type, string(job.Status), job.Message, job.WorkflowID,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("job", job.ID.String())
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// Get retrieves a job owned by userID.
func (r *PgJobRepository) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1 AND user_id = $2`

	job, err := scanJob(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("job", id.String())
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// GetByID retrieves a job regardless of owner.
func (r *PgJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("job", id.String())
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// SetWorkflowID records the workflow executing the job.
func (r *PgJobRepository) SetWorkflowID(ctx context.Context, id uuid.UUID, workflowID string) error {
	query := `UPDATE jobs SET workflow_id = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.db.Exec(ctx, query, workflowID, id)
	if err != nil {
		return fmt.Errorf("failed to set workflow ID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("job", id.String())
	}
	return nil
}

// UpdateStatus changes the status of a job that has not reached a terminal state.
func (r *PgJobRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.JobStatus,
	message string,
	result json.RawMessage,
) (*domain.Job, error) {
	switch status {
	case domain.JobStatusQueued, domain.JobStatusRunning, domain.JobStatusCompleted, domain.JobStatusFailed:
	default:
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown job status %q", status))
	}

	var resultArg any
	if len(result) > 0 {
		resultArg = []byte(result)
	}

	query := `
		UPDATE jobs
		SET status = $1,
			message = $2,
			result = COALESCE($3::jsonb, result),
			updated_at = NOW()
		WHERE id = $4 AND status NOT IN ('completed', 'failed')
		RETURNING ` + jobColumns

	job, err := scanJob(r.db.QueryRow(ctx, query, string(status), message, resultArg, id))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update job status: %w", err)
	}

	// No row matched: either the job is missing or it already finished.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("job %s: %w", id, domain.ErrJobFinished)
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		j      domain.Job
		status string
		result []byte
	)
	if err := row.Scan(
		&j.ID, &j.UserID, &j.Type, &status, &j.Message, &j.WorkflowID, &result, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	j.Status = domain.JobStatus(status)
	if len(result) > 0 {
		j.Result = json.RawMessage(result)
	}
	return &j, nil
}
