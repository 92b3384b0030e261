package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeminiTestGateway(t *testing.T, handler http.HandlerFunc) *GeminiGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gw, err := NewGeminiGateway(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return gw
}

const geminiReply = `{"candidates": [{"content": {"role": "model", "parts": [{"text": %q}]}}]}`

func TestGeminiGateway_Chat(t *testing.T) {
	t.Parallel()

	var body map[string]any
	gw := newGeminiTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/"+DefaultGeminiModel+":generateContent"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.Replace(geminiReply, "%q", `"Mappings for biology"`, 1)))
	})

	text, err := gw.Chat(context.Background(), "Domains: biology", "You are skilled at interdisciplinary synthesis with concrete applications.")
	require.NoError(t, err)

	assert.Equal(t, "Mappings for biology", text)
	assert.Contains(t, body, "systemInstruction")
	assert.Contains(t, body, "contents")
}

func TestGeminiGateway_ChatError(t *testing.T) {
	t.Parallel()

	gw := newGeminiTestGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`))
	})

	_, err := gw.Chat(context.Background(), "p", "")

	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, ProviderGemini, callErr.Provider)
	assert.Equal(t, http.StatusBadRequest, callErr.StatusCode)
}

func TestGeminiGateway_Transcribe(t *testing.T) {
	t.Parallel()

	var raw []byte
	gw := newGeminiTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.Replace(geminiReply, "%q", `"hello world"`, 1)))
	})

	text, err := gw.Transcribe(context.Background(), "clip.wav", "audio/wav", strings.NewReader("RIFF-fake"))
	require.NoError(t, err)

	assert.Equal(t, "hello world", text)
	assert.Contains(t, string(raw), TranscriptionPrompt)
	assert.Contains(t, string(raw), "audio/wav")
}
