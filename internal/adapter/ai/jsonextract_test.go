package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai"
)

func TestExtractEvaluationJSON(t *testing.T) {
	t.Parallel()

	t.Run("strict json", func(t *testing.T) {
		t.Parallel()
		obj, ok := ai.ExtractEvaluationJSON(`{"summary": "good"}`)
		require.True(t, ok)
		assert.Equal(t, "good", obj["summary"])
	})

	t.Run("fenced block", func(t *testing.T) {
		t.Parallel()
		text := "Here is my evaluation:\n```json\n{\"summary\": \"fenced\"}\n```\nHope that helps."
		obj, ok := ai.ExtractEvaluationJSON(text)
		require.True(t, ok)
		assert.Equal(t, "fenced", obj["summary"])
	})

	t.Run("fence without language tag", func(t *testing.T) {
		t.Parallel()
		obj, ok := ai.ExtractEvaluationJSON("```\n{\"summary\": \"plain fence\"}\n```")
		require.True(t, ok)
		assert.Equal(t, "plain fence", obj["summary"])
	})

	t.Run("embedded in prose", func(t *testing.T) {
		t.Parallel()
		text := `Sure! The candidate did well. {"scores": {"clarity": 4}, "summary": "embedded"} Let me know.`
		obj, ok := ai.ExtractEvaluationJSON(text)
		require.True(t, ok)
		assert.Equal(t, "embedded", obj["summary"])
	})

	t.Run("braces inside strings do not break the scan", func(t *testing.T) {
		t.Parallel()
		text := `noise {"summary": "uses {braces} and \"quotes\"", "risks": []} trailing`
		obj, ok := ai.ExtractEvaluationJSON(text)
		require.True(t, ok)
		assert.Equal(t, `uses {braces} and "quotes"`, obj["summary"])
	})

	t.Run("no json present", func(t *testing.T) {
		t.Parallel()
		obj, ok := ai.ExtractEvaluationJSON("I cannot evaluate this answer.")
		assert.False(t, ok)
		assert.Nil(t, obj)
	})

	t.Run("unbalanced braces", func(t *testing.T) {
		t.Parallel()
		_, ok := ai.ExtractEvaluationJSON(`{"summary": "truncated`)
		assert.False(t, ok)
	})
}
