package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// ProjectRepository persists projects. Reads are scoped to the owning user.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error

	// Get returns domain.ErrNotFound when the project does not exist or belongs to another user.
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Project, error)

	// List returns the user's projects, newest first.
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Project, error)
}
