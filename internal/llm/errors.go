package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyCompletion is the cause recorded when a provider answers without any text.
	ErrEmptyCompletion = errors.New("empty completion")

	// ErrTranscriptionUnsupported is returned by gateways whose provider has no speech-to-text API.
	ErrTranscriptionUnsupported = errors.New("transcription not supported by this provider")

	// ErrUnsupportedProvider is returned by NewGateway for an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")
)

// CallError describes a failed LLM call. Feature code receives it instead of text,
// so a failure can never be mistaken for model output.
type CallError struct {
	// Provider is the backend name, e.g. "openai".
	Provider string
	// Model is the model identifier used for the call.
	Model string
	// StatusCode is the HTTP status returned by the provider; 0 when no response was received.
	StatusCode int
	// Message is a short human-readable reason.
	Message string
	// Cause is the underlying SDK or context error.
	Cause error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%s): call failed (status %d): %s", e.Provider, e.Model, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (%s): call failed: %s", e.Provider, e.Model, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CallError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether retrying the call later might succeed: rate limiting (429),
// server errors (5xx), and failures where no HTTP response was received.
func (e *CallError) IsTransient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

func newCallError(provider, model string, status int, cause error) *CallError {
	msg := "request failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &CallError{
		Provider:   provider,
		Model:      model,
		StatusCode: status,
		Message:    msg,
		Cause:      cause,
	}
}
