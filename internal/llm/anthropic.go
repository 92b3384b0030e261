package llm

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicGateway talks to the Anthropic Messages API.
type AnthropicGateway struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

var _ Backend = (*AnthropicGateway)(nil)

// NewAnthropicGateway creates an Anthropic-backed gateway. SDK retries are disabled.
func NewAnthropicGateway(cfg Config) *AnthropicGateway {
	cfg.Provider = ProviderAnthropic
	cfg.applyDefaults()

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base+"/"))
	}

	return &AnthropicGateway{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
	}
}

// Provider returns "anthropic".
func (g *AnthropicGateway) Provider() string { return ProviderAnthropic }

// Model returns the model identifier.
func (g *AnthropicGateway) Model() string { return g.model }

// Chat sends one user turn and joins the text blocks of the reply.
func (g *AnthropicGateway) Chat(ctx context.Context, prompt, system string) (string, error) {
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   g.maxTokens,
		Temperature: anthropic.Float(DefaultTemperature),
		System:      []anthropic.TextBlockParam{{Text: systemOrDefault(system)}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", newCallError(ProviderAnthropic, g.model, apiErr.StatusCode, err)
		}
		return "", newCallError(ProviderAnthropic, g.model, 0, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", newCallError(ProviderAnthropic, g.model, 0, ErrEmptyCompletion)
	}
	return text, nil
}

// Transcribe always fails: the Messages API does not accept audio.
func (g *AnthropicGateway) Transcribe(_ context.Context, _, _ string, _ io.Reader) (string, error) {
	return "", ErrTranscriptionUnsupported
}
