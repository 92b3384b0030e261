package llm

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIGateway talks to the OpenAI chat completions and audio transcription APIs.
type OpenAIGateway struct {
	client             openai.Client
	model              string
	transcriptionModel string
}

var _ Backend = (*OpenAIGateway)(nil)

// NewOpenAIGateway creates an OpenAI-backed gateway. SDK retries are disabled.
func NewOpenAIGateway(cfg Config) *OpenAIGateway {
	cfg.Provider = ProviderOpenAI
	cfg.applyDefaults()

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if base := normalizeOpenAIBaseURL(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	transcriptionModel := cfg.TranscriptionModel
	if transcriptionModel == "" {
		transcriptionModel = DefaultWhisperModel
	}

	return &OpenAIGateway{
		client:             openai.NewClient(opts...),
		model:              cfg.Model,
		transcriptionModel: transcriptionModel,
	}
}

// Provider returns "openai".
func (g *OpenAIGateway) Provider() string { return ProviderOpenAI }

// Model returns the chat model identifier.
func (g *OpenAIGateway) Model() string { return g.model }

// Chat sends a system and a user message and returns the first choice.
func (g *OpenAIGateway) Chat(ctx context.Context, prompt, system string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemOrDefault(system)),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(DefaultTemperature),
	})
	if err != nil {
		return "", g.callError(g.model, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", newCallError(ProviderOpenAI, g.model, 0, ErrEmptyCompletion)
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe sends the audio to Whisper with temperature 0.
func (g *OpenAIGateway) Transcribe(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	resp, err := g.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:        openai.File(r, filename, contentType),
		Model:       openai.AudioModel(g.transcriptionModel),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", g.callError(g.transcriptionModel, err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", newCallError(ProviderOpenAI, g.transcriptionModel, 0, ErrEmptyCompletion)
	}
	return resp.Text, nil
}

func (g *OpenAIGateway) callError(model string, err error) *CallError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return newCallError(ProviderOpenAI, model, apiErr.StatusCode, err)
	}
	return newCallError(ProviderOpenAI, model, 0, err)
}

// normalizeOpenAIBaseURL makes sure a custom endpoint ends in /v1/, which the SDK expects.
func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/"
}
