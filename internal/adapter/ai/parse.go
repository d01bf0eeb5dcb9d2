package ai

import (
	"strings"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// ParseEvaluation maps a decoded provider object into an EvaluationResult.
// Missing dimensions and malformed values degrade to the neutral midpoint via
// ClampScore; key aliases from differently-trained models are tolerated.
func ParseEvaluation(raw map[string]any, transcript, provider, model string, latencyMS int64) domain.EvaluationResult {
	res := domain.EvaluationResult{
		Transcript:         transcript,
		Score:              make(map[string]float64, len(domain.ScoreDimensions)),
		ScoreJustification: map[string]string{},
		Provider:           provider,
		Model:              model,
		LatencyMS:          latencyMS,
	}

	scores, _ := firstMap(raw, "scores", "score")
	for _, dim := range domain.ScoreDimensions {
		v, ok := dimValue(scores, dim)
		if !ok {
			continue
		}
		res.Score[dim] = ClampScore(v)
	}

	if just, ok := firstMap(raw, "score_justification", "scoreJustification", "justifications"); ok {
		for _, dim := range domain.ScoreDimensions {
			if v, ok := dimValue(just, dim); ok {
				if s, ok := v.(string); ok {
					res.ScoreJustification[dim] = s
				}
			}
		}
	}

	if s, ok := raw["summary"].(string); ok {
		res.Summary = strings.TrimSpace(s)
	}
	res.Strengths = stringSlice(raw["strengths"])
	res.Risks = stringSlice(raw["risks"])
	if r, ok := raw["recommendation"].(string); ok {
		res.Recommendation = normalizeRecommendation(r)
	}
	return res
}

func firstMap(raw map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if m, ok := raw[k].(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}

// dimValue looks a dimension up under its snake_case name and the camelCase
// alias some models emit (technical_fit vs technicalFit).
func dimValue(m map[string]any, dim string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[dim]; ok {
		return v, true
	}
	if v, ok := m[snakeToCamel(dim)]; ok {
		return v, true
	}
	return nil, false
}

func snakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func normalizeRecommendation(r string) string {
	r = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(r, " ", "_")))
	switch r {
	case domain.RecommendationStrongHire, domain.RecommendationHire,
		domain.RecommendationMaybe, domain.RecommendationNoHire,
		domain.RecommendationStrongNoHire:
		return r
	default:
		return ""
	}
}
