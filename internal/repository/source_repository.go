package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// SourceRepository persists paper briefs saved into projects.
type SourceRepository interface {
	Create(ctx context.Context, source *domain.Source) error

	// ListByProject returns the saved sources of a project in insertion order.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Source, error)
}
