package features

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/helixir/research-assistant-service/internal/domain"
)

// TextBlock wraps free model output. The model text is returned as-is and is
// never parsed into assumed structure.
type TextBlock struct {
	Text   string `json:"text"`
	Detail string `json:"detail,omitempty"`
}

// SurveyRequest asks for a literature survey on a topic.
type SurveyRequest struct {
	Topic    string   `json:"topic" validate:"required,max=500"`
	Keywords []string `json:"keywords"`
	// NResults is the desired number of papers; 0 means the default of 20.
	NResults  int        `json:"n_results" validate:"gte=0"`
	YearFrom  *int       `json:"year_from,omitempty"`
	YearTo    *int       `json:"year_to,omitempty"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
}

// SurveyResponse carries the retrieved papers and the drafted survey.
type SurveyResponse struct {
	Papers []domain.PaperBrief `json:"papers"`
	Draft  string              `json:"draft"`
	// DraftID is set when the survey was saved into a project.
	DraftID *uuid.UUID `json:"draft_id,omitempty"`
	// Unavailable lists providers skipped after failing during retrieval.
	Unavailable []string `json:"unavailable_sources,omitempty"`
}

// GapRequest asks for limitations and opportunities across selected papers.
type GapRequest struct {
	Aim            string              `json:"aim" validate:"required"`
	SelectedPapers []domain.PaperBrief `json:"selected_papers"`
}

// GapResponse holds the gap analysis.
type GapResponse struct {
	Limitations   []TextBlock `json:"limitations"`
	Opportunities []TextBlock `json:"opportunities"`
}

// TranslateRequest asks for the translation of an uploaded document.
type TranslateRequest struct {
	DocumentID uuid.UUID `json:"document_id" validate:"required"`
	TargetLang string    `json:"target_lang"`
}

// TranslateResponse holds the translated text and, when stored, a link to it.
type TranslateResponse struct {
	TranslatedText string `json:"translated_text"`
	DownloadURL    string `json:"download_url,omitempty"`
}

// PersonaSummaryRequest asks for a summary tailored to a persona. RawText wins
// over DocumentID when both are set.
type PersonaSummaryRequest struct {
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	RawText    string     `json:"raw_text,omitempty"`
	Persona    string     `json:"persona"`
	Focus      string     `json:"focus"`
	Length     string     `json:"length"`
}

// PersonaSummaryResponse holds the summary.
type PersonaSummaryResponse struct {
	Summary string `json:"summary"`
}

// FlowNode is a step of a methodology flowchart.
type FlowNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// FlowEdge connects two flowchart steps.
type FlowEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Flowchart is a directed graph of methodology steps.
type Flowchart struct {
	Nodes []FlowNode `json:"nodes"`
	Edges []FlowEdge `json:"edges"`
}

// MethodologyRequest describes the study to plan.
type MethodologyRequest struct {
	Concept     string         `json:"concept" validate:"required"`
	Datasets    []string       `json:"datasets"`
	Baselines   []string       `json:"baselines"`
	Constraints map[string]any `json:"constraints"`
}

// MethodologyResponse holds the flowchart and the model's rationale.
type MethodologyResponse struct {
	Flowchart Flowchart `json:"flowchart_json"`
	Rationale string    `json:"rationale"`
}

// ReplicatorRequest asks for experiment variants on top of a methodology.
type ReplicatorRequest struct {
	MethodologyJSON json.RawMessage     `json:"methodology_json" validate:"required"`
	CandidatePapers []domain.PaperBrief `json:"candidate_papers"`
}

// Annotation attaches a note to a flowchart node.
type Annotation struct {
	NodeID string `json:"nodeId"`
	Note   string `json:"note"`
}

// Overlay lists additions to a methodology flowchart.
type Overlay struct {
	NodesToAdd  []FlowNode   `json:"nodesToAdd"`
	EdgesToAdd  []FlowEdge   `json:"edgesToAdd"`
	Annotations []Annotation `json:"annotations"`
}

// ReplicatorResponse holds the overlay and the model's explanation.
type ReplicatorResponse struct {
	Overlay Overlay `json:"overlay_json"`
	Notes   string  `json:"notes"`
}

// CrossDomainRequest asks to map a draft onto other fields.
type CrossDomainRequest struct {
	DraftText     string   `json:"draft_text" validate:"required"`
	TargetDomains []string `json:"target_domains" validate:"required,min=1,dive,required"`
}

// DomainMapping is one target domain of a cross-domain synthesis.
type DomainMapping struct {
	Domain       string   `json:"domain"`
	Applications []string `json:"applications"`
	Risks        []string `json:"risks"`
}

// CrossDomainResponse holds one mapping per target domain and the narrative.
type CrossDomainResponse struct {
	Mappings  []DomainMapping `json:"mappings"`
	Narrative string          `json:"narrative"`
}

// BenchmarkRequest asks which metrics suit a task.
type BenchmarkRequest struct {
	TaskType    string         `json:"task_type" validate:"required"`
	Datasets    []string       `json:"datasets"`
	Constraints map[string]any `json:"constraints"`
}

// Metric is an evaluation metric from the benchmark registry.
type Metric struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Equation  string `json:"equation,omitempty"`
}

// BenchmarkResponse holds the recommended metrics.
type BenchmarkResponse struct {
	Metrics  []Metric `json:"metrics"`
	Guidance string   `json:"guidance"`
}

// ContradictionRequest asks for conflicts between methods and results.
type ContradictionRequest struct {
	MethodologyText string `json:"methodology_text" validate:"required"`
	ResultsText     string `json:"results_text" validate:"required"`
	Domain          string `json:"domain"`
}

// ContradictionResponse holds the detected conflicts.
type ContradictionResponse struct {
	Conflicts []TextBlock `json:"conflicts"`
}

// CitationValidateRequest asks for a citation hygiene pass over a draft.
type CitationValidateRequest struct {
	DraftMarkdown string `json:"draft_markdown" validate:"required"`
	Style         string `json:"style"`
}

// CitationValidateResponse holds the annotated draft and its reference list.
type CitationValidateResponse struct {
	AnnotatedMarkdown string   `json:"annotated_markdown"`
	References        []string `json:"references"`
}

// LatexRequest asks for a LaTeX manuscript built from a draft.
type LatexRequest struct {
	DraftMarkdown string `json:"draft_markdown" validate:"required"`
	Template      string `json:"template"`
}

// LatexResponse links to the generated .tex file.
type LatexResponse struct {
	URL string `json:"url"`
}

// TranscriptResponse holds the text of a voice recording.
type TranscriptResponse struct {
	Transcript string `json:"transcript"`
}
