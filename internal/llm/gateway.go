// Package llm provides the chat-completion gateway used by every research
// feature, plus speech-to-text for voice input.
//
// Exactly one backend is active per process. It is chosen from static
// configuration when the gateway is constructed:
//
//	gw, err := llm.NewGateway(ctx, llm.Config{Provider: "openai", APIKey: key})
//	text, err := gw.Chat(ctx, prompt, "You are a rigorous academic writer.")
//
// Failures are returned as *CallError. The gateway never retries.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/helixir/research-assistant-service/internal/observability"
)

// Provider names accepted by NewGateway.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

const (
	// DefaultSystemPrompt is used when a caller passes an empty system instruction.
	DefaultSystemPrompt = "You are a helpful research assistant."

	// DefaultTemperature is the sampling temperature used for every call.
	DefaultTemperature = 0.2

	// DefaultTimeout bounds a single call.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxTokens is the response budget for providers that require one.
	DefaultMaxTokens = 4096

	DefaultOpenAIModel    = "gpt-4o"
	DefaultGeminiModel    = "gemini-2.5-pro"
	DefaultAnthropicModel = "claude-sonnet-4-5"
)

// Gateway sends a single prompt to the configured chat model and returns its text.
type Gateway interface {
	// Chat returns the completion for prompt. An empty system uses DefaultSystemPrompt.
	Chat(ctx context.Context, prompt, system string) (string, error)

	// Provider returns the backend name.
	Provider() string

	// Model returns the model identifier.
	Model() string
}

// Config holds the parameters needed to create a Gateway.
// It is defined here so the llm package does not import the config package.
type Config struct {
	// Provider is "openai", "gemini", or "anthropic".
	Provider string
	// APIKey authenticates against the provider.
	APIKey string
	// Model overrides the provider default model.
	Model string
	// BaseURL overrides the provider endpoint. Used by tests and proxies.
	BaseURL string
	// Timeout bounds each call. Defaults to DefaultTimeout.
	Timeout time.Duration
	// MaxTokens bounds the response length where the API requires it.
	MaxTokens int
	// TranscriptionModel overrides the speech-to-text model.
	TranscriptionModel string
}

func (c *Config) applyDefaults() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Model != "" {
		return
	}
	switch c.Provider {
	case ProviderOpenAI:
		c.Model = DefaultOpenAIModel
	case ProviderGemini:
		c.Model = DefaultGeminiModel
	case ProviderAnthropic:
		c.Model = DefaultAnthropicModel
	}
}

// Backend is a Gateway that can also transcribe audio.
type Backend interface {
	Gateway
	Transcriber
}

// NewGateway creates the backend selected by cfg.Provider.
func NewGateway(ctx context.Context, cfg Config) (Backend, error) {
	cfg.applyDefaults()
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm: %s api key is empty", cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIGateway(cfg), nil
	case ProviderGemini:
		return NewGeminiGateway(ctx, cfg)
	case ProviderAnthropic:
		return NewAnthropicGateway(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

func systemOrDefault(system string) string {
	if strings.TrimSpace(system) == "" {
		return DefaultSystemPrompt
	}
	return system
}

// InstrumentedGateway records call counts and latency for a wrapped gateway.
type InstrumentedGateway struct {
	next    Gateway
	metrics *observability.Metrics
}

// NewInstrumentedGateway wraps next with Prometheus metrics.
func NewInstrumentedGateway(next Gateway, metrics *observability.Metrics) *InstrumentedGateway {
	return &InstrumentedGateway{next: next, metrics: metrics}
}

// Chat delegates to the wrapped gateway.
func (g *InstrumentedGateway) Chat(ctx context.Context, prompt, system string) (string, error) {
	start := time.Now()
	text, err := g.next.Chat(ctx, prompt, system)
	outcome := observability.OutcomeSuccess
	if err != nil {
		outcome = observability.OutcomeError
	}
	g.metrics.RecordLLMRequest(g.next.Provider(), g.next.Model(), outcome, time.Since(start).Seconds())
	return text, err
}

// Provider returns the wrapped provider name.
func (g *InstrumentedGateway) Provider() string { return g.next.Provider() }

// Model returns the wrapped model identifier.
func (g *InstrumentedGateway) Model() string { return g.next.Model() }
