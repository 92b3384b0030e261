package features

import (
	"context"
	"fmt"
	"strings"

	"github.com/helixir/research-assistant-service/internal/domain"
)

const (
	citationSystemPrompt = "You are strict about citation hygiene and styles."
	defaultCitationStyle = "IEEE"
)

// ValidateCitations flags sentences that need a citation, normalizes in-text
// citations to numeric style and appends a reference skeleton.
func (s *Service) ValidateCitations(ctx context.Context, req CitationValidateRequest) (*CitationValidateResponse, error) {
	if strings.TrimSpace(req.DraftMarkdown) == "" {
		return nil, domain.NewValidationError("draft_markdown", "draft markdown is required")
	}

	prompt := fmt.Sprintf(`Draft markdown:
%s
Style: %s
Tasks:
1) Highlight sentences likely requiring citations (wrap with <<CITE?>> ... >>).
2) Normalize any existing in-text citations to numeric [#] style.
3) Produce a References list skeleton at the end (placeholders OK).

Return the annotated markdown followed by a References section.
`, truncateRunes(req.DraftMarkdown, documentMaxChars), orDefault(req.Style, defaultCitationStyle))

	out, err := s.chat(ctx, "citation", prompt, citationSystemPrompt)
	if err != nil {
		return nil, err
	}
	return &CitationValidateResponse{AnnotatedMarkdown: out, References: ParseReferences(out)}, nil
}

// ParseReferences returns the non-empty lines after the last "References"
// heading of a markdown document, with list bullets removed. It returns an
// empty slice when there is no such heading.
func ParseReferences(markdown string) []string {
	lines := strings.Split(markdown, "\n")
	start := -1
	for i, line := range lines {
		if isReferencesHeading(line) {
			start = i + 1
		}
	}

	refs := []string{}
	if start < 0 {
		return refs
	}
	for _, line := range lines[start:] {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		if line != "" {
			refs = append(refs, line)
		}
	}
	return refs
}

func isReferencesHeading(line string) bool {
	h := strings.TrimSpace(line)
	h = strings.TrimLeft(h, "# ")
	h = strings.Trim(h, "*_: ")
	return strings.EqualFold(h, "references")
}
