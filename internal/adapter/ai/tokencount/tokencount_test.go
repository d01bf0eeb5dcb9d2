package tokencount_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/ai/tokencount"
)

func TestCountTokens(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()

	n, err := c.CountTokens("hello world", "llama-3.3-70b-versatile")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
	assert.LessOrEqual(t, n, 5)

	empty, err := c.CountTokens("", "gemini-2.0-flash")
	require.NoError(t, err)
	assert.Equal(t, 0, empty)
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	c := tokencount.NewCounter()

	short := "a brief answer"
	assert.Equal(t, short, c.Truncate(short, "llama-3.3-70b-versatile", 100))

	long := strings.Repeat("the candidate explained the architecture in detail ", 200)
	truncated := c.Truncate(long, "llama-3.3-70b-versatile", 50)
	assert.Less(t, len(truncated), len(long))

	n, err := c.CountTokens(truncated, "llama-3.3-70b-versatile")
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 50)

	// Non-positive budget disables truncation.
	assert.Equal(t, long, c.Truncate(long, "llama-3.3-70b-versatile", 0))
}
