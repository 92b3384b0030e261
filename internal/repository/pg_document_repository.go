package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/research-assistant-service/internal/domain"
)

var _ DocumentRepository = (*PgDocumentRepository)(nil)

// PgDocumentRepository is a PostgreSQL implementation of DocumentRepository.
type PgDocumentRepository struct {
	db DBTX
}

// NewPgDocumentRepository creates a new PostgreSQL document repository.
func NewPgDocumentRepository(db DBTX) *PgDocumentRepository {
	return &PgDocumentRepository{db: db}
}

const documentColumns = `id, project_id, user_id, filename, path, mime, created_at`

// Create inserts a document row and fills CreatedAt from the database.
func (r *PgDocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return domain.NewValidationError("document", "document cannot be nil")
	}
	if doc.ID == uuid.Nil {
		return domain.NewValidationError("id", "document ID is required")
	}
	if doc.ProjectID == uuid.Nil {
		return domain.NewValidationError("project_id", "project ID is required")
	}
	if doc.UserID == uuid.Nil {
		return domain.NewValidationError("user_id", "user ID is required")
	}
	if doc.Path == "" {
		return domain.NewValidationError("path", "storage path is required")
	}

	query := `
		INSERT INTO documents (id, project_id, user_id, filename, path, mime)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		doc.ID, doc.ProjectID, doc.UserID, doc.Filename, doc.Path, doc.MIME,
	).Scan(&doc.CreatedAt)
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.NewValidationError("project_id", "project does not exist")
		}
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// Get retrieves a document owned by userID.
func (r *PgDocumentRepository) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND user_id = $2`

	doc, err := scanDocument(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("document", id.String())
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByProject returns the user's documents of a project, newest first.
func (r *PgDocumentRepository) ListByProject(ctx context.Context, userID, projectID uuid.UUID) ([]*domain.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE project_id = $1 AND user_id = $2
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	if err := row.Scan(&d.ID, &d.ProjectID, &d.UserID, &d.Filename, &d.Path, &d.MIME, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}
