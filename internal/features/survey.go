package features

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/domain"
	"github.com/helixir/research-assistant-service/internal/papersources"
)

const surveySystemPrompt = "You are a rigorous academic writer. Always cite with [#]."

// maxCitationContext bounds the sentence stored with each citation.
const maxCitationContext = 300

// Column widths of the drafts and sources tables.
const (
	maxTopicRunes    = 500
	maxTitleRunes    = 255
	maxSourceField   = 255
	maxSourceYearLen = 10
)

// GenerateSurvey retrieves papers for the topic and drafts a survey citing them
// as [1], [2], ... When req.ProjectID is set the project must belong to userID;
// the sources, the draft and one citation per marker are then saved together.
func (s *Service) GenerateSurvey(ctx context.Context, userID uuid.UUID, req SurveyRequest) (*SurveyResponse, error) {
	topic := domain.NormalizeQuery(req.Topic)
	if topic == "" {
		return nil, domain.NewValidationError("topic", "topic is required")
	}
	if utf8.RuneCountInString(topic) > maxTopicRunes {
		return nil, domain.NewValidationError("topic", fmt.Sprintf("must be at most %d characters", maxTopicRunes))
	}
	if req.NResults < 0 {
		return nil, domain.NewValidationError("n_results", "must not be negative")
	}

	var project *domain.Project
	if req.ProjectID != nil {
		p, err := s.repos.Projects.Get(ctx, userID, *req.ProjectID)
		if err != nil {
			return nil, err
		}
		project = p
	}

	result, err := s.aggregator.Aggregate(ctx, papersources.AggregateRequest{
		Query:        topic,
		Keywords:     req.Keywords,
		DesiredCount: req.NResults,
		YearFrom:     req.YearFrom,
		YearTo:       req.YearTo,
	})
	if err != nil {
		return nil, err
	}

	draft, err := s.chat(ctx, "survey", surveyPrompt(topic, result.Papers), surveySystemPrompt)
	if err != nil {
		return nil, err
	}

	resp := &SurveyResponse{
		Papers:      result.Papers,
		Draft:       draft,
		Unavailable: result.Unavailable,
	}
	if resp.Papers == nil {
		resp.Papers = []domain.PaperBrief{}
	}

	if project != nil {
		draftID, err := s.saveSurvey(ctx, userID, project, topic, result.Papers, draft)
		if err != nil {
			return nil, err
		}
		resp.DraftID = &draftID
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Int("papers", len(result.Papers)).
		Strs("unavailable", result.Unavailable).
		Bool("saved", project != nil).
		Msg("survey generated")
	return resp, nil
}

func (s *Service) saveSurvey(
	ctx context.Context,
	userID uuid.UUID,
	project *domain.Project,
	topic string,
	papers []domain.PaperBrief,
	text string,
) (uuid.UUID, error) {
	sources := make([]*domain.Source, len(papers))
	for i, p := range papers {
		p.FirstAuthor = truncateRunes(p.FirstAuthor, maxSourceField)
		p.Venue = truncateRunes(p.Venue, maxSourceField)
		p.DOI = truncateRunes(p.DOI, maxSourceField)
		p.Year = truncateRunes(p.Year, maxSourceYearLen)
		sources[i] = &domain.Source{ID: uuid.New(), ProjectID: project.ID, PaperBrief: p}
	}

	draft := &domain.Draft{
		ID:        uuid.New(),
		ProjectID: project.ID,
		UserID:    userID,
		Title:     truncateRunes("Literature survey: "+topic, maxTitleRunes),
		ContentMD: text,
	}

	var citations []*domain.Citation
	for _, m := range FindCitationMarkers(text) {
		if m.Index < 1 || m.Index > len(sources) {
			continue
		}
		citations = append(citations, &domain.Citation{
			ID:       uuid.New(),
			DraftID:  draft.ID,
			SourceID: sources[m.Index-1].ID,
			Marker:   m.Marker,
			Context:  m.Context,
		})
	}

	if err := s.repos.Drafts.SaveSurvey(ctx, draft, sources, citations); err != nil {
		return uuid.Nil, err
	}
	return draft.ID, nil
}

// surveyPrompt builds the survey prompt around a numbered bibliography.
func surveyPrompt(topic string, papers []domain.PaperBrief) string {
	return fmt.Sprintf(`Topic: %s
You are writing a literature survey. Use only the listed papers and cite as [1], [2], etc.
Papers:
%s

Write a concise literature survey (research style) with in-text numeric citations.
`, topic, CitationList(papers))
}

// CitationList renders papers as a numbered IEEE-like bibliography.
func CitationList(papers []domain.PaperBrief) string {
	lines := make([]string, 0, len(papers))
	for i, p := range papers {
		line := fmt.Sprintf("[%d] %s et al., “%s”, %s %s. %s", i+1, p.FirstAuthor, p.Title, p.Venue, p.Year, p.Link())
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.Join(lines, "\n")
}

// CitationMarker is one numeric citation found in a draft.
type CitationMarker struct {
	// Index is the 1-based position in the bibliography.
	Index int
	// Marker is the canonical form, e.g. "[3]".
	Marker string
	// Context is the sentence in which the marker first appears.
	Context string
}

var markerPattern = regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`)

// FindCitationMarkers returns the distinct numeric markers of text in order of
// first appearance. Grouped markers such as [1, 3] yield one entry per number.
func FindCitationMarkers(text string) []CitationMarker {
	var (
		out  []CitationMarker
		seen = map[int]bool{}
	)
	for _, loc := range markerPattern.FindAllStringSubmatchIndex(text, -1) {
		group := text[loc[2]:loc[3]]
		for _, part := range strings.Split(group, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, CitationMarker{
				Index:   n,
				Marker:  "[" + strconv.Itoa(n) + "]",
				Context: sentenceAround(text, loc[0], loc[1]),
			})
		}
	}
	return out
}

// sentenceAround returns the sentence containing text[start:end].
func sentenceAround(text string, start, end int) string {
	from := strings.LastIndexAny(text[:start], ".!?\n")
	from++
	to := len(text)
	if i := strings.IndexAny(text[end:], ".!?\n"); i >= 0 {
		to = end + i
		if text[to] != '\n' {
			to++
		}
	}
	return truncateRunes(strings.TrimSpace(text[from:to]), maxCitationContext)
}
