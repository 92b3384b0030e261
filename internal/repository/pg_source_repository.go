package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/domain"
)

var _ SourceRepository = (*PgSourceRepository)(nil)

// PgSourceRepository is a PostgreSQL implementation of SourceRepository.
type PgSourceRepository struct {
	db DBTX
}

// NewPgSourceRepository creates a new PostgreSQL source repository.
func NewPgSourceRepository(db DBTX) *PgSourceRepository {
	return &PgSourceRepository{db: db}
}

const insertSourceSQL = `
	INSERT INTO sources (id, project_id, title, first_author, year, venue, doi, url, provider)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Create inserts one source.
func (r *PgSourceRepository) Create(ctx context.Context, source *domain.Source) error {
	return insertSource(ctx, r.db, source)
}

// ListByProject returns the sources of a project.
func (r *PgSourceRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Source, error) {
	query := `
		SELECT id, project_id, title, first_author, year, venue, doi, url, provider
		FROM sources
		WHERE project_id = $1
		ORDER BY seq`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []*domain.Source
	for rows.Next() {
		var s domain.Source
		if err := rows.Scan(
			&s.ID, &s.ProjectID, &s.Title, &s.FirstAuthor, &s.Year,
			&s.Venue, &s.DOI, &s.URL, &s.Provider,
		); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}
	return sources, nil
}

func insertSource(ctx context.Context, q DBTX, s *domain.Source) error {
	if s == nil {
		return domain.NewValidationError("source", "source cannot be nil")
	}
	if s.ID == uuid.Nil {
		return domain.NewValidationError("id", "source ID is required")
	}
	if s.ProjectID == uuid.Nil {
		return domain.NewValidationError("project_id", "project ID is required")
	}

	_, err := q.Exec(ctx, insertSourceSQL,
		s.ID, s.ProjectID, s.Title, s.FirstAuthor, s.Year, s.Venue, s.DOI, s.URL, s.Provider,
	)
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.NewValidationError("project_id", "project does not exist")
		}
		return fmt.Errorf("failed to insert source: %w", err)
	}
	return nil
}
