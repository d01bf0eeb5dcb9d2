package ai_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

func TestClampScore(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{"in range", 4.0, 4.0},
		{"below range", -5.0, 0},
		{"above range", 7.0, 5},
		{"rounds to one decimal", 3.27, 3.3},
		{"rounds down", 3.24, 3.2},
		{"int", 2, 2.0},
		{"numeric string", "4.5", 4.5},
		// 1.15 is slightly above 1.15 as a float64, so half-up rounding lands on 1.2.
		{"json number", json.Number("1.15"), 1.2},
		{"json number rounds down", json.Number("1.14"), 1.1},
		{"non-numeric string", "nan", 3},
		{"garbage string", "excellent", 3},
		{"nil", nil, 3},
		{"bool", true, 3},
		{"boundary low", 0.0, 0},
		{"boundary high", 5.0, 5},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ai.ClampScore(tc.in))
		})
	}
}

func TestDefaultEvaluation_Total(t *testing.T) {
	t.Parallel()
	for _, reason := range []string{"No transcript available", "", "All providers failed"} {
		res := ai.DefaultEvaluation(reason)
		require.Len(t, res.Score, len(domain.ScoreDimensions))
		for _, dim := range domain.ScoreDimensions {
			assert.Equal(t, 3.0, res.Score[dim])
			assert.Contains(t, res.ScoreJustification[dim], reason)
		}
		assert.Equal(t, domain.RecommendationMaybe, res.Recommendation)
		assert.Equal(t, "fallback", res.Provider)
		assert.Equal(t, "none", res.Model)
		assert.NotEmpty(t, res.Summary)
	}
}
