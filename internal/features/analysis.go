package features

import (
	"context"
	"fmt"
	"strings"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// System instructions of the analysis features.
const (
	gapSystemPrompt           = "You are a research analyst. Be specific and cite sources by short title/author."
	crossDomainSystemPrompt   = "You are skilled at interdisciplinary synthesis with concrete applications."
	contradictionSystemPrompt = "You find inconsistencies between methods and results."
)

// Input caps, in characters.
const (
	crossDomainMaxChars   = 12000
	contradictionMaxChars = 8000
)

// FindGaps extracts limitations of the selected papers and proposes
// opportunities aligned with the aim.
func (s *Service) FindGaps(ctx context.Context, req GapRequest) (*GapResponse, error) {
	if strings.TrimSpace(req.Aim) == "" {
		return nil, domain.NewValidationError("aim", "aim is required")
	}

	prompt := fmt.Sprintf(`Aim: %s
Papers:
%s

Task:
1) Extract limitations/assumptions in these papers (bullet list). For each item include the source title or first author.
2) Propose aim-aligned opportunities (what to do next), each tied to at least one source.

Format:
Limitations: - limitation (with sources)
Opportunities: - idea (with rationale and sources)
`, req.Aim, referenceLines(req.SelectedPapers))

	content, err := s.chat(ctx, "gaps", prompt, gapSystemPrompt)
	if err != nil {
		return nil, err
	}

	limitations, opportunities := splitGapSections(content)
	return &GapResponse{
		Limitations:   []TextBlock{{Text: limitations}},
		Opportunities: []TextBlock{{Text: opportunities, Detail: content}},
	}, nil
}

// splitGapSections cuts the model answer at its "Opportunities" heading. When
// no heading is found both sections hold the whole answer.
func splitGapSections(content string) (limitations, opportunities string) {
	lower := strings.ToLower(content)
	idx := strings.LastIndex(lower, "opportunities")
	if idx <= 0 {
		return content, content
	}
	// Move back to the start of the heading line.
	lineStart := strings.LastIndex(content[:idx], "\n") + 1
	return strings.TrimSpace(content[:lineStart]), strings.TrimSpace(content[lineStart:])
}

// SynthesizeCrossDomain maps the constructs of a draft onto target domains.
// The response has one mapping per requested domain, in request order.
func (s *Service) SynthesizeCrossDomain(ctx context.Context, req CrossDomainRequest) (*CrossDomainResponse, error) {
	if strings.TrimSpace(req.DraftText) == "" {
		return nil, domain.NewValidationError("draft_text", "draft text is required")
	}
	if len(req.TargetDomains) == 0 {
		return nil, domain.NewValidationError("target_domains", "at least one target domain is required")
	}

	prompt := fmt.Sprintf(`Draft text:
%s

Target domains: %s
Map core constructs to each domain with concrete applications (both directions).
Return:
- mappings: list of {domain, applications[], risks[]}
- narrative: 2-3 paragraphs
`, truncateRunes(req.DraftText, crossDomainMaxChars), strings.Join(req.TargetDomains, ", "))

	narrative, err := s.chat(ctx, "cross_domain", prompt, crossDomainSystemPrompt)
	if err != nil {
		return nil, err
	}

	mappings := make([]DomainMapping, len(req.TargetDomains))
	for i, d := range req.TargetDomains {
		mappings[i] = DomainMapping{Domain: d, Applications: []string{}, Risks: []string{}}
	}
	return &CrossDomainResponse{Mappings: mappings, Narrative: narrative}, nil
}

// AnalyzeContradictions looks for claims in the results that conflict with the
// methodology.
func (s *Service) AnalyzeContradictions(ctx context.Context, req ContradictionRequest) (*ContradictionResponse, error) {
	if !s.flags.Contradiction {
		return nil, fmt.Errorf("contradiction scan: %w", domain.ErrFeatureDisabled)
	}
	if strings.TrimSpace(req.MethodologyText) == "" || strings.TrimSpace(req.ResultsText) == "" {
		return nil, domain.NewValidationError("methodology_text", "methodology and results text are required")
	}

	prompt := fmt.Sprintf(`Methodology:
%s

Results:
%s
Domain: %s
Identify conflicting claims or contradictions. For each, include:
- claim
- why contradictory
- what to check (data, setup, eval)
Return as a bullet list.
`,
		truncateRunes(req.MethodologyText, contradictionMaxChars),
		truncateRunes(req.ResultsText, contradictionMaxChars),
		req.Domain,
	)

	out, err := s.chat(ctx, "contradiction", prompt, contradictionSystemPrompt)
	if err != nil {
		return nil, err
	}
	return &ContradictionResponse{Conflicts: []TextBlock{{Text: out}}}, nil
}
