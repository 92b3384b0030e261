// Package bootstrap builds the feature stack shared by the API server and the
// job worker from the loaded configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant-service/internal/config"
	"github.com/helixir/research-assistant-service/internal/features"
	"github.com/helixir/research-assistant-service/internal/llm"
	"github.com/helixir/research-assistant-service/internal/observability"
	"github.com/helixir/research-assistant-service/internal/papersources"
	"github.com/helixir/research-assistant-service/internal/papersources/crossref"
	"github.com/helixir/research-assistant-service/internal/papersources/openalex"
	"github.com/helixir/research-assistant-service/internal/papersources/semanticscholar"
	"github.com/helixir/research-assistant-service/internal/papersources/unpaywall"
	"github.com/helixir/research-assistant-service/internal/repository"
	"github.com/helixir/research-assistant-service/internal/storage"
)

// NewAggregator wires the enabled providers in priority order: Semantic
// Scholar, OpenAlex, then Crossref, with Unpaywall as the enricher.
func NewAggregator(cfg config.SourcesConfig, logger zerolog.Logger, metrics *observability.Metrics) (*papersources.Aggregator, error) {
	var searchers []papersources.Searcher

	if cfg.SemanticScholar.Enabled {
		searchers = append(searchers, semanticscholar.NewClient(semanticscholar.Config{
			BaseURL:   cfg.SemanticScholar.BaseURL,
			APIKey:    cfg.SemanticScholar.APIKey,
			Timeout:   cfg.SemanticScholar.Timeout,
			RateLimit: cfg.SemanticScholar.RateLimit,
			BurstSize: cfg.SemanticScholar.BurstSize,
		}, nil))
	}
	if cfg.OpenAlex.Enabled {
		searchers = append(searchers, openalex.New(openalex.Config{
			BaseURL:   cfg.OpenAlex.BaseURL,
			Email:     cfg.ContactEmail,
			Timeout:   cfg.OpenAlex.Timeout,
			RateLimit: cfg.OpenAlex.RateLimit,
			BurstSize: cfg.OpenAlex.BurstSize,
		}))
	}
	if cfg.Crossref.Enabled {
		searchers = append(searchers, crossref.New(crossref.Config{
			BaseURL:   cfg.Crossref.BaseURL,
			Email:     cfg.ContactEmail,
			Timeout:   cfg.Crossref.Timeout,
			RateLimit: cfg.Crossref.RateLimit,
			BurstSize: cfg.Crossref.BurstSize,
		}))
	}
	if len(searchers) == 0 {
		return nil, fmt.Errorf("at least one search provider must be enabled")
	}

	var enricher papersources.Enricher
	if cfg.Unpaywall.Enabled {
		enricher = unpaywall.New(unpaywall.Config{
			BaseURL:   cfg.Unpaywall.BaseURL,
			Email:     cfg.ContactEmail,
			Timeout:   cfg.Unpaywall.Timeout,
			RateLimit: cfg.Unpaywall.RateLimit,
		}, logger)
	}

	names := make([]string, 0, len(searchers))
	for _, s := range searchers {
		names = append(names, s.Name())
	}
	logger.Info().Strs("providers", names).Bool("enrichment", enricher != nil).Msg("paper sources configured")

	return papersources.NewAggregator(searchers, enricher, logger, metrics), nil
}

// NewLLM creates the configured chat backend. The returned gateway records
// metrics; the transcriber is the raw backend.
func NewLLM(ctx context.Context, cfg config.LLMConfig, metrics *observability.Metrics) (llm.Gateway, llm.Transcriber, error) {
	backend, err := llm.NewGateway(ctx, llm.Config{
		Provider:           cfg.Provider,
		APIKey:             cfg.APIKey(),
		Model:              cfg.Model,
		BaseURL:            cfg.BaseURL,
		Timeout:            cfg.Timeout,
		MaxTokens:          cfg.MaxTokens,
		TranscriptionModel: cfg.TranscriptionModel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create llm gateway: %w", err)
	}
	return llm.NewInstrumentedGateway(backend, metrics), backend, nil
}

// NewFeatureService assembles the feature service over db and store.
func NewFeatureService(
	ctx context.Context,
	cfg *config.Config,
	db repository.DBTX,
	store storage.Store,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) (*features.Service, error) {
	gateway, transcriber, err := NewLLM(ctx, cfg.LLM, metrics)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("provider", gateway.Provider()).
		Str("model", gateway.Model()).
		Msg("llm gateway configured")

	aggregator, err := NewAggregator(cfg.Sources, logger, metrics)
	if err != nil {
		return nil, err
	}

	repos := features.Repositories{
		Projects:  repository.NewPgProjectRepository(db),
		Documents: repository.NewPgDocumentRepository(db),
		Drafts:    repository.NewPgDraftRepository(db),
	}

	return features.NewService(gateway, aggregator, repos, store,
		features.WithTranscriber(transcriber),
		features.WithFlags(features.Flags{
			Translation:   cfg.Features.Translation,
			Replicator:    cfg.Features.Replicator,
			Contradiction: cfg.Features.Contradiction,
		}),
		features.WithLogger(logger),
	), nil
}
