package features

import (
	"context"
	"strings"

	"github.com/helixir/research-assistant-service/internal/domain"
)

const (
	higherIsBetter = "higher-better"

	benchmarkGuidance = "Select metrics aligned with your task and constraints (e.g., latency, fairness). Report definitions and pitfalls."
)

var benchmarkRegistry = map[string][]Metric{
	"image-classification": {
		{Name: "Top-1 Accuracy", Direction: higherIsBetter, Equation: "correct/total"},
		{Name: "Top-5 Accuracy", Direction: higherIsBetter},
		{Name: "F1-score", Direction: higherIsBetter},
	},
	"text-generation": {
		{Name: "BLEU", Direction: higherIsBetter},
		{Name: "ROUGE-L", Direction: higherIsBetter},
	},
}

var fallbackMetrics = []Metric{{Name: "Accuracy", Direction: higherIsBetter}}

// RecommendBenchmarks looks the task type up in a static metric registry.
// Unknown task types get a generic accuracy metric. No model is called.
func (s *Service) RecommendBenchmarks(_ context.Context, req BenchmarkRequest) (*BenchmarkResponse, error) {
	key := strings.ToLower(strings.TrimSpace(req.TaskType))
	if key == "" {
		return nil, domain.NewValidationError("task_type", "task type is required")
	}

	metrics, ok := benchmarkRegistry[key]
	if !ok {
		metrics = fallbackMetrics
	}
	out := make([]Metric, len(metrics))
	copy(out, metrics)
	return &BenchmarkResponse{Metrics: out, Guidance: benchmarkGuidance}, nil
}
