package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// DocumentRepository persists uploaded document metadata. File contents live in storage.
type DocumentRepository interface {
	// Create inserts a document row. The project must exist.
	Create(ctx context.Context, doc *domain.Document) error

	// Get returns domain.ErrNotFound when the document does not exist or belongs to another user.
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Document, error)

	// ListByProject returns the user's documents of one project, newest first.
	ListByProject(ctx context.Context, userID, projectID uuid.UUID) ([]*domain.Document, error)
}
