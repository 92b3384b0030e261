package features

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/storage"
)

const (
	translateSystemPrompt = "You are a professional translator for research papers."
	personaSystemPrompt   = "You tailor research summaries for specific personas."

	documentMaxChars = 15000

	defaultTargetLang = "en"
	defaultPersona    = "student"
	defaultFocus      = "methods"
	defaultLength     = "short"
)

// Translate translates an uploaded document owned by userID. The translation
// is also stored as a markdown export and linked from the response.
func (s *Service) Translate(ctx context.Context, userID uuid.UUID, req TranslateRequest) (*TranslateResponse, error) {
	if !s.flags.Translation {
		return nil, fmt.Errorf("translation: %w", domain.ErrFeatureDisabled)
	}
	if req.DocumentID == uuid.Nil {
		return nil, domain.NewValidationError("document_id", "document ID is required")
	}

	_, text, err := s.documentText(ctx, userID, req.DocumentID)
	if err != nil {
		return nil, err
	}

	lang := orDefault(req.TargetLang, defaultTargetLang)
	prompt := fmt.Sprintf("Translate the following into %s. Preserve structure and section headers when found:\n\n%s",
		lang, truncateRunes(text, documentMaxChars))

	translated, err := s.chat(ctx, "translate", prompt, translateSystemPrompt)
	if err != nil {
		return nil, err
	}

	resp := &TranslateResponse{TranslatedText: translated}
	loc, err := s.store.Save(ctx, storage.ExportKey("md"), "text/markdown; charset=utf-8", strings.NewReader(translated))
	if err != nil {
		s.logger.Warn().Err(err).Str("document_id", req.DocumentID.String()).Msg("failed to store translation")
		return resp, nil
	}
	resp.DownloadURL = s.store.URL(loc)
	return resp, nil
}

// PersonaSummary summarizes raw text or an owned document for a persona.
func (s *Service) PersonaSummary(ctx context.Context, userID uuid.UUID, req PersonaSummaryRequest) (*PersonaSummaryResponse, error) {
	text := req.RawText
	if strings.TrimSpace(text) == "" {
		if req.DocumentID == nil {
			return nil, domain.NewValidationError("raw_text", "raw text or a document ID is required")
		}
		var err error
		if _, text, err = s.documentText(ctx, userID, *req.DocumentID); err != nil {
			return nil, err
		}
	}

	prompt := fmt.Sprintf(`Persona: %s
Focus: %s
Length: %s

Summarize the following research content. Use clear headers and bullet points. Avoid speculation:
%s
`,
		orDefault(req.Persona, defaultPersona),
		orDefault(req.Focus, defaultFocus),
		orDefault(req.Length, defaultLength),
		truncateRunes(text, documentMaxChars),
	)

	summary, err := s.chat(ctx, "persona_summary", prompt, personaSystemPrompt)
	if err != nil {
		return nil, err
	}
	return &PersonaSummaryResponse{Summary: summary}, nil
}
