// Package ai provides the evaluation score model: prompt construction,
// response extraction, and score normalization shared by all providers.
package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// defaultRubric is used for any dimension the question does not override.
var defaultRubric = map[string]string{
	"clarity":       "Is the answer structured and easy to follow?",
	"relevance":     "Does the answer actually address the question asked?",
	"confidence":    "Does the candidate sound certain and composed?",
	"technical_fit": "Does the answer demonstrate the required technical depth?",
	"communication": "Is the delivery concise and professional?",
}

// BuildEvaluationPrompt renders the evaluation prompt for one transcript.
// Output is deterministic for identical inputs so provider responses can be
// cached and regression-tested.
func BuildEvaluationPrompt(questionText, transcript string, rubric map[string]string) string {
	var b strings.Builder
	b.WriteString("You are an expert technical interviewer evaluating a candidate's spoken answer.\n\n")
	b.WriteString("Interview question:\n")
	b.WriteString(questionText)
	b.WriteString("\n\nCandidate's transcribed answer:\n\"\"\"\n")
	b.WriteString(transcript)
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString("Score the answer on each dimension from 0 to 5 (decimals allowed):\n")
	for _, dim := range domain.ScoreDimensions {
		crit, ok := rubric[dim]
		if !ok || crit == "" {
			crit = defaultRubric[dim]
		}
		fmt.Fprintf(&b, "- %s: %s\n", dim, crit)
	}
	// Extra rubric keys outside the canonical five are rendered as context
	// only; they are never scored.
	extras := make([]string, 0, len(rubric))
	for k := range rubric {
		if !isScoreDimension(k) {
			extras = append(extras, k)
		}
	}
	if len(extras) > 0 {
		sort.Strings(extras)
		b.WriteString("\nAdditional evaluation guidance:\n")
		for _, k := range extras {
			fmt.Fprintf(&b, "- %s: %s\n", k, rubric[k])
		}
	}
	b.WriteString("\nBe strict and discriminating. Most real answers have weaknesses; ")
	b.WriteString("do not award 4 or 5 across the board unless the answer is genuinely exceptional.\n\n")
	b.WriteString("Respond with ONLY a JSON object in exactly this shape:\n")
	b.WriteString(`{
  "scores": {"clarity": 0, "relevance": 0, "confidence": 0, "technical_fit": 0, "communication": 0},
  "score_justification": {"clarity": "...", "relevance": "...", "confidence": "...", "technical_fit": "...", "communication": "..."},
  "summary": "2-3 sentence overall assessment",
  "strengths": ["..."],
  "risks": ["..."],
  "recommendation": "strong_hire|hire|maybe|no_hire|strong_no_hire"
}`)
	b.WriteString("\n")
	return b.String()
}

func isScoreDimension(key string) bool {
	for _, dim := range domain.ScoreDimensions {
		if key == dim {
			return true
		}
	}
	return false
}
