package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/research-assistant-service/internal/domain"
)

var _ DraftRepository = (*PgDraftRepository)(nil)

// PgDraftRepository is a PostgreSQL implementation of DraftRepository.
type PgDraftRepository struct {
	db DBTX
}

// NewPgDraftRepository creates a new PostgreSQL draft repository.
func NewPgDraftRepository(db DBTX) *PgDraftRepository {
	return &PgDraftRepository{db: db}
}

// Create inserts a draft and fills CreatedAt from the database.
func (r *PgDraftRepository) Create(ctx context.Context, draft *domain.Draft) error {
	return insertDraft(ctx, r.db, draft)
}

// Get retrieves a draft owned by userID.
func (r *PgDraftRepository) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Draft, error) {
	query := `
		SELECT id, project_id, user_id, title, content_md, created_at
		FROM drafts
		WHERE id = $1 AND user_id = $2`

	var d domain.Draft
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&d.ID, &d.ProjectID, &d.UserID, &d.Title, &d.ContentMD, &d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("draft", id.String())
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return &d, nil
}

// SaveSurvey inserts the draft, then the sources, then the citations. Nothing
// is written when any insert fails.
func (r *PgDraftRepository) SaveSurvey(
	ctx context.Context,
	draft *domain.Draft,
	sources []*domain.Source,
	citations []*domain.Citation,
) error {
	err := inTx(ctx, r.db, func(q DBTX) error {
		if err := insertDraft(ctx, q, draft); err != nil {
			return err
		}
		for _, s := range sources {
			if err := insertSource(ctx, q, s); err != nil {
				return err
			}
		}
		for _, c := range citations {
			if err := insertCitation(ctx, q, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save survey: %w", err)
	}
	return nil
}

// ListCitations returns the citations of a draft.
func (r *PgDraftRepository) ListCitations(ctx context.Context, draftID uuid.UUID) ([]*domain.Citation, error) {
	query := `
		SELECT id, draft_id, source_id, marker, context
		FROM citations
		WHERE draft_id = $1
		ORDER BY length(marker), marker`

	rows, err := r.db.Query(ctx, query, draftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list citations: %w", err)
	}
	defer rows.Close()

	var citations []*domain.Citation
	for rows.Next() {
		var c domain.Citation
		if err := rows.Scan(&c.ID, &c.DraftID, &c.SourceID, &c.Marker, &c.Context); err != nil {
			return nil, fmt.Errorf("failed to scan citation: %w", err)
		}
		citations = append(citations, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate citations: %w", err)
	}
	return citations, nil
}

func insertDraft(ctx context.Context, q DBTX, d *domain.Draft) error {
	if d == nil {
		return domain.NewValidationError("draft", "draft cannot be nil")
	}
	if d.ID == uuid.Nil {
		return domain.NewValidationError("id", "draft ID is required")
	}
	if d.ProjectID == uuid.Nil {
		return domain.NewValidationError("project_id", "project ID is required")
	}
	if d.UserID == uuid.Nil {
		return domain.NewValidationError("user_id", "user ID is required")
	}

	query := `
		INSERT INTO drafts (id, project_id, user_id, title, content_md)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := q.QueryRow(ctx, query, d.ID, d.ProjectID, d.UserID, d.Title, d.ContentMD).Scan(&d.CreatedAt)
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.NewValidationError("project_id", "project does not exist")
		}
		return fmt.Errorf("failed to insert draft: %w", err)
	}
	return nil
}

func insertCitation(ctx context.Context, q DBTX, c *domain.Citation) error {
	if c == nil {
		return domain.NewValidationError("citation", "citation cannot be nil")
	}
	if c.ID == uuid.Nil || c.DraftID == uuid.Nil || c.SourceID == uuid.Nil {
		return domain.NewValidationError("citation", "citation, draft and source IDs are required")
	}

	query := `
		INSERT INTO citations (id, draft_id, source_id, marker, context)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := q.Exec(ctx, query, c.ID, c.DraftID, c.SourceID, c.Marker, c.Context); err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.NewValidationError("source_id", "citation references an unknown draft or source")
		}
		return fmt.Errorf("failed to insert citation: %w", err)
	}
	return nil
}
