package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant-service/internal/domain"
)

var jobRowColumns = []string{
	"id", "user_id", "type", "status", "message", "workflow_id", "result", "created_at", "updated_at",
}

func jobRow(id, userID uuid.UUID, status domain.JobStatus, message string, result []byte) *pgxmock.Rows {
	now := time.Now().UTC()
	var res any
	if result != nil {
		res = result
	}
	return pgxmock.NewRows(jobRowColumns).
		AddRow(id, userID, domain.JobTypeSurvey, string(status), message, "survey-job-"+id.String(), res, now, now)
}

func TestPgJobRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to queued", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewPgJobRepository(mock)
		job := &domain.Job{ID: uuid.New(), UserID: uuid.New(), Type: domain.JobTypeSurvey}

		mock.ExpectQuery("INSERT INTO jobs").
			WithArgs(job.ID, job.UserID, domain.JobTypeSurvey, "queued", "", "").
			WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

		require.NoError(t, repo.Create(ctx, job))
		assert.Equal(t, domain.JobStatusQueued, job.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("type is required", func(t *testing.T) {
		repo := NewPgJobRepository(newMockPool(t))
		err := repo.Create(ctx, &domain.Job{ID: uuid.New(), UserID: uuid.New()})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPgJobRepository_Get(t *testing.T) {
	ctx := context.Background()
	id, owner := uuid.New(), uuid.New()

	t.Run("owner reads job with result", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewPgJobRepository(mock)

		mock.ExpectQuery(`SELECT .* FROM jobs WHERE id = \$1 AND user_id = \$2`).
			WithArgs(id, owner).
			WillReturnRows(jobRow(id, owner, domain.JobStatusCompleted, "", []byte(`{"draft":"x"}`)))

		job, err := repo.Get(ctx, owner, id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, job.Status)
		assert.JSONEq(t, `{"draft":"x"}`, string(job.Result))
	})

	t.Run("other user gets not found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewPgJobRepository(mock)
		stranger := uuid.New()

		mock.ExpectQuery(`SELECT .* FROM jobs WHERE id = \$1 AND user_id = \$2`).
			WithArgs(id, stranger).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.Get(ctx, stranger, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPgJobRepository_SetWorkflowID(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("updates", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewPgJobRepository(mock)

		mock.ExpectExec("UPDATE jobs SET workflow_id").
			WithArgs("survey-job-1", id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.SetWorkflowID(ctx, id, "survey-job-1"))
	})

	t.Run("missing job", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewPgJobRepository(mock)

		mock.ExpectExec("UPDATE jobs SET workflow_id").
			WithArgs("survey-job-1", id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.SetWorkflowID(ctx, id, "survey-job-1"), domain.ErrNotFound)
	})
}

func TestPgJobRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	id, owner := uuid.New(), uuid.New()

	t.Run("running", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewPgJobRepository(mock)

		mock.ExpectQuery("UPDATE jobs").
			WithArgs("running", "", nil, id).
			WillReturnRows(jobRow(id, owner, domain.JobStatusRunning, "", nil))

		job, err := repo.UpdateStatus(ctx, id, domain.JobStatusRunning, "", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusRunning, job.Status)
		assert.Nil(t, job.Result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("completed stores result", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewPgJobRepository(mock)
		result := json.RawMessage(`{"draft_id":"abc"}`)

		mock.ExpectQuery("UPDATE jobs").
			WithArgs("completed", "done", []byte(result), id).
			WillReturnRows(jobRow(id, owner, domain.JobStatusCompleted, "done", result))

		job, err := repo.UpdateStatus(ctx, id, domain.JobStatusCompleted, "done", result)
		require.NoError(t, err)
		assert.JSONEq(t, string(result), string(job.Result))
	})

	t.Run("terminal job cannot change", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewPgJobRepository(mock)

		mock.ExpectQuery("UPDATE jobs").
			WithArgs("failed", "late", nil, id).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(`SELECT .* FROM jobs WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(jobRow(id, owner, domain.JobStatusCompleted, "", nil))

		_, err := repo.UpdateStatus(ctx, id, domain.JobStatusFailed, "late", nil)
		assert.ErrorIs(t, err, domain.ErrJobFinished)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing job", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewPgJobRepository(mock)

		mock.ExpectQuery("UPDATE jobs").
			WithArgs("running", "", nil, id).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(`SELECT .* FROM jobs WHERE id = \$1`).
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.UpdateStatus(ctx, id, domain.JobStatusRunning, "", nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown status", func(t *testing.T) {
		repo := NewPgJobRepository(newMockPool(t))
		_, err := repo.UpdateStatus(ctx, id, domain.JobStatus("paused"), "", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
