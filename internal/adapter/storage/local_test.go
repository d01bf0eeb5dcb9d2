package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/adapter/storage"
	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

func TestPut_WritesUnderKey(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := storage.NewLocalAudioStore(dir)
	require.NoError(t, err)

	data := []byte("audio bytes")
	require.NoError(t, s.Put(context.Background(), "sess-1/0.webm", data, "audio/webm"))

	got, err := os.ReadFile(filepath.Join(dir, "sess-1", "0.webm"))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPut_OverwriteReplaces(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := storage.NewLocalAudioStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "sess-1/0.webm", []byte("first"), "audio/webm"))
	require.NoError(t, s.Put(context.Background(), "sess-1/0.webm", []byte("second take"), "audio/webm"))

	got, err := os.ReadFile(filepath.Join(dir, "sess-1", "0.webm"))
	require.NoError(t, err)
	assert.Equal(t, []byte("second take"), got)
}

func TestPut_RejectsTraversal(t *testing.T) {
	t.Parallel()
	s, err := storage.NewLocalAudioStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape.webm", "a/../../b"} {
		err := s.Put(context.Background(), key, []byte("x"), "audio/webm")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, "key %q", key)
	}
}
