package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiGateway talks to the Gemini API through the Google Gen AI SDK.
type GeminiGateway struct {
	client  *genai.Client
	model   string
	timeout func(context.Context) (context.Context, context.CancelFunc)
}

var _ Backend = (*GeminiGateway)(nil)

// NewGeminiGateway creates a Gemini-backed gateway.
func NewGeminiGateway(ctx context.Context, cfg Config) (*GeminiGateway, error) {
	cfg.Provider = ProviderGemini
	cfg.applyDefaults()

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}

	timeout := cfg.Timeout
	return &GeminiGateway{
		client: client,
		model:  cfg.Model,
		timeout: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithTimeout(ctx, timeout)
		},
	}, nil
}

// Provider returns "gemini".
func (g *GeminiGateway) Provider() string { return ProviderGemini }

// Model returns the model identifier.
func (g *GeminiGateway) Model() string { return g.model }

// Chat generates content for a single user turn with the system instruction attached.
func (g *GeminiGateway) Chat(ctx context.Context, prompt, system string) (string, error) {
	ctx, cancel := g.timeout(ctx)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	return g.generate(ctx, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemOrDefault(system), genai.RoleUser),
		Temperature:       genai.Ptr[float32](DefaultTemperature),
	})
}

// Transcribe sends the audio inline together with a transcription instruction.
func (g *GeminiGateway) Transcribe(ctx context.Context, _, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxAudioBytes+1))
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if len(data) > maxAudioBytes {
		return "", fmt.Errorf("audio exceeds %d bytes", maxAudioBytes)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	ctx, cancel := g.timeout(ctx)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromText(TranscriptionPrompt),
		genai.NewPartFromBytes(data, contentType),
	}
	return g.generate(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
}

func (g *GeminiGateway) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", newCallError(ProviderGemini, g.model, apiErr.Code, err)
		}
		return "", newCallError(ProviderGemini, g.model, 0, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", newCallError(ProviderGemini, g.model, 0, ErrEmptyCompletion)
	}
	return text, nil
}
