package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// DraftRepository persists drafts and their citations.
type DraftRepository interface {
	Create(ctx context.Context, draft *domain.Draft) error

	// Get returns domain.ErrNotFound when the draft does not exist or belongs to another user.
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Draft, error)

	// SaveSurvey writes a draft, the sources it cites and the citations linking
	// them in one transaction. Citation source IDs must reference the given sources.
	SaveSurvey(ctx context.Context, draft *domain.Draft, sources []*domain.Source, citations []*domain.Citation) error

	// ListCitations returns the citations of a draft ordered by marker.
	ListCitations(ctx context.Context, draftID uuid.UUID) ([]*domain.Citation, error)
}
