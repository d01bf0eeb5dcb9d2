package ai

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// ClampScore coerces a raw provider score value into the [0,5] range, rounded
// to one decimal. Non-numeric values (including NaN and Inf) map to the
// neutral midpoint 3.
func ClampScore(v any) float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 3
	}
	if f < 0 {
		return 0
	}
	if f > 5 {
		return 5
	}
	return math.Round(f*10) / 10
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// DefaultEvaluation returns the neutral evaluation used when no provider
// produced a usable result. Total: never fails, regardless of reason.
func DefaultEvaluation(reason string) domain.EvaluationResult {
	scores := make(map[string]float64, len(domain.ScoreDimensions))
	just := make(map[string]string, len(domain.ScoreDimensions))
	for _, dim := range domain.ScoreDimensions {
		scores[dim] = 3
		just[dim] = "Not evaluated: " + reason
	}
	return domain.EvaluationResult{
		Score:              scores,
		ScoreJustification: just,
		Summary:            "Automatic evaluation unavailable: " + reason,
		Strengths:          []string{},
		Risks:              []string{"Answer requires manual review"},
		Recommendation:     domain.RecommendationMaybe,
		Provider:           "fallback",
		Model:              "none",
	}
}
