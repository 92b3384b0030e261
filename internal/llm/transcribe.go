package llm

import (
	"context"
	"io"
)

// TranscriptionPrompt is sent with audio to multimodal chat models.
const TranscriptionPrompt = "Transcribe this research-related audio:"

// DefaultWhisperModel is the OpenAI speech-to-text model.
const DefaultWhisperModel = "whisper-1"

// maxAudioBytes caps how much audio is buffered for providers that need the whole file in memory.
const maxAudioBytes = 25 << 20

// Transcriber converts recorded speech into text.
type Transcriber interface {
	// Transcribe reads the audio from r. filename and contentType describe the upload.
	Transcribe(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
}
