package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/repository"
)

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Role     domain.Role
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	AccessToken string
	User        *domain.User
}

// Service implements registration, login and token authentication.
type Service struct {
	users  repository.UserRepository
	tokens *TokenIssuer
	logger zerolog.Logger
}

// NewService creates an auth Service.
func NewService(users repository.UserRepository, tokens *TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Register creates a user. The email must be unused and the role, if given,
// must be known; an empty role becomes domain.DefaultRole.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, domain.NewValidationError("email", "email is required")
	}
	if in.Password == "" {
		return nil, domain.NewValidationError("password", "password is required")
	}
	role := in.Role
	if role == "" {
		role = domain.DefaultRole
	}
	if !role.Valid() {
		return nil, domain.NewValidationError("role", fmt.Sprintf("unknown role %q", role))
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("role", string(role)).Msg("user registered")
	return user, nil
}

// Login checks credentials and issues an access token. Unknown emails and
// wrong passwords both return domain.ErrUnauthorized.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, User: user}, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid user or token", domain.ErrUnauthorized)
		}
		return nil, err
	}
	return user, nil
}
