package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	// Create inserts a user. The caller assigns the ID.
	// Returns domain.ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID returns domain.ErrNotFound when no user has the ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail looks a user up by exact email.
	// Returns domain.ErrNotFound when no user has the email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
