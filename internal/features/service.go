// Package features implements the research assistant capabilities: literature
// survey, gap finding, translation, persona summaries, methodology design,
// experiment variants, cross-domain synthesis, benchmark advice, contradiction
// scanning, citation hygiene, LaTeX export and voice transcription.
//
// Each operation composes a prompt from its request, makes at most one
// retrieval run and one LLM call, and wraps the model text in a typed
// response. LLM failures surface as *llm.CallError and are never returned as
// response text.
package features

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/llm"
	"github.com/helixir/research-assistant-service/internal/papersources"
	"github.com/helixir/research-assistant-service/internal/repository"
	"github.com/helixir/research-assistant-service/internal/storage"
)

// maxDocumentBytes caps how much of a stored document is read for prompting.
const maxDocumentBytes = 32 << 20

// PaperAggregator runs a multi-source literature search.
type PaperAggregator interface {
	Aggregate(ctx context.Context, req papersources.AggregateRequest) (*papersources.AggregatedResult, error)
}

// Flags switches optional features on or off.
type Flags struct {
	Translation   bool
	Replicator    bool
	Contradiction bool
}

// AllEnabled returns flags with every optional feature on.
func AllEnabled() Flags {
	return Flags{Translation: true, Replicator: true, Contradiction: true}
}

// Repositories groups the stores the features read and write.
type Repositories struct {
	Projects  repository.ProjectRepository
	Documents repository.DocumentRepository
	Drafts    repository.DraftRepository
}

// Service implements every feature operation.
type Service struct {
	gateway     llm.Gateway
	transcriber llm.Transcriber
	aggregator  PaperAggregator
	repos       Repositories
	store       storage.Store
	flags       Flags
	logger      zerolog.Logger
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithTranscriber enables voice transcription.
func WithTranscriber(t llm.Transcriber) Option {
	return func(s *Service) { s.transcriber = t }
}

// WithFlags overrides the default of all optional features enabled.
func WithFlags(f Flags) Option {
	return func(s *Service) { s.flags = f }
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger.With().Str("component", "features").Logger() }
}

// NewService creates a feature Service.
func NewService(
	gateway llm.Gateway,
	aggregator PaperAggregator,
	repos Repositories,
	store storage.Store,
	opts ...Option,
) *Service {
	s := &Service{
		gateway:    gateway,
		aggregator: aggregator,
		repos:      repos,
		store:      store,
		flags:      AllEnabled(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Flags returns the active feature flags.
func (s *Service) Flags() Flags { return s.flags }

// chat sends one prompt and tags failures with the feature name.
func (s *Service) chat(ctx context.Context, feature, prompt, system string) (string, error) {
	text, err := s.gateway.Chat(ctx, prompt, system)
	if err != nil {
		s.logger.Warn().Err(err).Str("feature", feature).Msg("llm call failed")
		return "", fmt.Errorf("%s: %w", feature, err)
	}
	return text, nil
}

// documentText loads an owned document and returns its plain text.
func (s *Service) documentText(ctx context.Context, userID, documentID uuid.UUID) (*domain.Document, string, error) {
	doc, err := s.repos.Documents.Get(ctx, userID, documentID)
	if err != nil {
		return nil, "", err
	}

	rc, err := s.store.Open(ctx, doc.Path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open document %s: %w", doc.ID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxDocumentBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read document %s: %w", doc.ID, err)
	}

	text, err := storage.ExtractText(doc.Filename, doc.MIME, data)
	if err != nil {
		return nil, "", domain.NewValidationError("document_id", "document text could not be extracted")
	}
	return doc, text, nil
}

// truncateRunes keeps at most n characters of s.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// referenceLines renders papers as "- author: title (year) link" lines.
func referenceLines(papers []domain.PaperBrief) string {
	lines := make([]string, 0, len(papers))
	for _, p := range papers {
		link := p.URL
		if link == "" {
			link = p.DOI
		}
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("- %s: %s (%s) %s", p.FirstAuthor, p.Title, p.Year, link)))
	}
	return strings.Join(lines, "\n")
}
