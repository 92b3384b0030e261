package features

import (
	"context"
	"fmt"
	"io"

	"github.com/helixir/research-assistant-service/internal/llm"
)

// Transcribe converts an uploaded voice recording to text.
func (s *Service) Transcribe(ctx context.Context, filename, contentType string, r io.Reader) (*TranscriptResponse, error) {
	if s.transcriber == nil {
		return nil, llm.ErrTranscriptionUnsupported
	}
	text, err := s.transcriber.Transcribe(ctx, filename, contentType, r)
	if err != nil {
		s.logger.Warn().Err(err).Str("filename", filename).Msg("transcription failed")
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	return &TranscriptResponse{Transcript: text}, nil
}
