package features

import (
	"context"
	"fmt"
	"strings"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/storage"
)

const (
	defaultLatexTemplate = "conference"
	latexContentType     = "application/x-tex"
)

// latexEscaper is applied in a single pass so that replacement text is never
// escaped again.
var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

const latexArticle = `\documentclass{article}
\usepackage[margin=1in]{geometry}
\usepackage{hyperref}
\usepackage{setspace}
\usepackage{titlesec}
\usepackage{lipsum}
\title{Generated Research Paper}
\date{}
\begin{document}
\maketitle
\onehalfspacing
%% --- Content ---
%s
\end{document}
`

// EscapeLatex escapes the characters LaTeX treats specially.
func EscapeLatex(s string) string {
	return latexEscaper.Replace(s)
}

// RenderLatex fills the article template with the escaped draft.
func RenderLatex(markdown string) string {
	return fmt.Sprintf(latexArticle, EscapeLatex(markdown))
}

// GenerateLatex renders the draft as a LaTeX article and stores it as an
// export. Only the article template exists; the requested template name is
// logged and otherwise ignored.
func (s *Service) GenerateLatex(ctx context.Context, req LatexRequest) (*LatexResponse, error) {
	if strings.TrimSpace(req.DraftMarkdown) == "" {
		return nil, domain.NewValidationError("draft_markdown", "draft markdown is required")
	}

	loc, err := s.store.Save(ctx, storage.ExportKey("tex"), latexContentType, strings.NewReader(RenderLatex(req.DraftMarkdown)))
	if err != nil {
		return nil, fmt.Errorf("failed to store latex export: %w", err)
	}

	s.logger.Info().
		Str("template", orDefault(req.Template, defaultLatexTemplate)).
		Str("location", loc).
		Msg("latex export generated")
	return &LatexResponse{URL: s.store.URL(loc)}, nil
}
