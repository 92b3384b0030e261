package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/research-assistant-service/internal/domain"
)

var _ ProjectRepository = (*PgProjectRepository)(nil)

// PgProjectRepository is a PostgreSQL implementation of ProjectRepository.
type PgProjectRepository struct {
	db DBTX
}

// NewPgProjectRepository creates a new PostgreSQL project repository.
func NewPgProjectRepository(db DBTX) *PgProjectRepository {
	return &PgProjectRepository{db: db}
}

const projectColumns = `id, user_id, title, domain, aim, created_at`

// Create inserts a project and fills CreatedAt from the database.
func (r *PgProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	if project == nil {
		return domain.NewValidationError("project", "project cannot be nil")
	}
	if project.ID == uuid.Nil {
		return domain.NewValidationError("id", "project ID is required")
	}
	if project.UserID == uuid.Nil {
		return domain.NewValidationError("user_id", "user ID is required")
	}
	if strings.TrimSpace(project.Title) == "" {
		return domain.NewValidationError("title", "title is required")
	}

	query := `
		INSERT INTO projects (id, user_id, title, domain, aim)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		project.ID, project.UserID, project.Title, project.Domain, project.Aim,
	).Scan(&project.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("project", project.ID.String())
		}
		if isPgForeignKeyViolation(err) {
			return domain.NewValidationError("user_id", "user does not exist")
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Get retrieves a project owned by userID.
func (r *PgProjectRepository) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND user_id = $2`

	p, err := scanProject(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("project", id.String())
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// List returns a page of the user's projects, newest first.
func (r *PgProjectRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Project, error) {
	applyPaginationDefaults(&limit, &offset)

	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Domain, &p.Aim, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
