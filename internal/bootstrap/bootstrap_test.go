package bootstrap

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant-service/internal/config"
	"github.com/helixir/research-assistant-service/internal/llm"
)

func TestNewAggregator(t *testing.T) {
	t.Run("requires a search provider", func(t *testing.T) {
		_, err := NewAggregator(config.SourcesConfig{
			Unpaywall: config.SourceConfig{Enabled: true},
		}, zerolog.Nop(), nil)
		require.Error(t, err)
	})

	t.Run("builds with every provider", func(t *testing.T) {
		agg, err := NewAggregator(config.SourcesConfig{
			ContactEmail:    "team@example.org",
			SemanticScholar: config.SourceConfig{Enabled: true},
			OpenAlex:        config.SourceConfig{Enabled: true},
			Crossref:        config.SourceConfig{Enabled: true},
			Unpaywall:       config.SourceConfig{Enabled: true},
		}, zerolog.Nop(), nil)
		require.NoError(t, err)
		assert.NotNil(t, agg)
	})
}

func TestNewLLM(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, _, err := NewLLM(context.Background(), config.LLMConfig{Provider: "openai"}, nil)
		require.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, _, err := NewLLM(context.Background(), config.LLMConfig{Provider: "cohere", OpenAIAPIKey: "k"}, nil)
		require.Error(t, err)
	})

	t.Run("instruments the configured backend", func(t *testing.T) {
		gw, tr, err := NewLLM(context.Background(), config.LLMConfig{Provider: "anthropic", AnthropicAPIKey: "k"}, nil)
		require.NoError(t, err)
		assert.Equal(t, llm.ProviderAnthropic, gw.Provider())
		assert.Equal(t, llm.DefaultAnthropicModel, gw.Model())
		assert.NotNil(t, tr)
	})
}
