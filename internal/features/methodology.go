package features

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helixir/research-assistant-service/internal/domain"
)

const (
	methodologySystemPrompt = "You design clear research methodologies with structured steps."
	replicatorSystemPrompt  = "You propose careful experimental enhancements grounded in cited sources."
)

// DefaultFlowchart is the start, data prep, model, evaluate pipeline returned
// with every methodology.
func DefaultFlowchart() Flowchart {
	return Flowchart{
		Nodes: []FlowNode{
			{ID: "start", Label: "Start"},
			{ID: "prep", Label: "Data Prep"},
			{ID: "model", Label: "Model"},
			{ID: "eval", Label: "Evaluate"},
		},
		Edges: []FlowEdge{
			{Source: "start", Target: "prep"},
			{Source: "prep", Target: "model"},
			{Source: "model", Target: "eval"},
		},
	}
}

// BuildMethodology drafts a step-by-step methodology for a research concept.
func (s *Service) BuildMethodology(ctx context.Context, req MethodologyRequest) (*MethodologyResponse, error) {
	if strings.TrimSpace(req.Concept) == "" {
		return nil, domain.NewValidationError("concept", "concept is required")
	}

	prompt := fmt.Sprintf(`Build a step-by-step methodology for:
Concept: %s
Datasets: %s
Baselines: %s
Constraints: %s

Output:
1) JSON for flowchart nodes/edges (fields: nodes:[id,label], edges:[source,target,label]).
2) Rationale text referencing similar methods in literature (no made-up citations).
`, req.Concept, jsonText(req.Datasets), jsonText(req.Baselines), jsonText(req.Constraints))

	rationale, err := s.chat(ctx, "methodology", prompt, methodologySystemPrompt)
	if err != nil {
		return nil, err
	}
	return &MethodologyResponse{Flowchart: DefaultFlowchart(), Rationale: rationale}, nil
}

// ReplicateExperiment suggests variants of a methodology drawn from candidate papers.
func (s *Service) ReplicateExperiment(ctx context.Context, req ReplicatorRequest) (*ReplicatorResponse, error) {
	if !s.flags.Replicator {
		return nil, fmt.Errorf("experiment replicator: %w", domain.ErrFeatureDisabled)
	}
	if len(req.MethodologyJSON) == 0 || !json.Valid(req.MethodologyJSON) {
		return nil, domain.NewValidationError("methodology_json", "a valid methodology JSON object is required")
	}

	prompt := fmt.Sprintf(`Given this methodology JSON (nodes/edges): %s
Papers with enhancements/new steps:
%s

Suggest concrete insertions/variants. Explain benefit and where they attach (node id).
Return:
- overlay_json: nodesToAdd:[...], edgesToAdd:[...], annotations:[{nodeId, note}]
- notes: human-readable explanation
`, string(req.MethodologyJSON), referenceLines(req.CandidatePapers))

	notes, err := s.chat(ctx, "replicator", prompt, replicatorSystemPrompt)
	if err != nil {
		return nil, err
	}

	return &ReplicatorResponse{
		Overlay: Overlay{
			NodesToAdd: []FlowNode{},
			EdgesToAdd: []FlowEdge{},
			Annotations: []Annotation{
				{NodeID: "model", Note: "Consider regularization techniques from the candidate papers."},
			},
		},
		Notes: notes,
	}, nil
}

// jsonText renders v for a prompt; nil collections render as empty ones.
func jsonText(v any) string {
	switch t := v.(type) {
	case []string:
		if t == nil {
			return "[]"
		}
	case map[string]any:
		if t == nil {
			return "{}"
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
