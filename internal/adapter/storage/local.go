// Package storage persists raw answer audio.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

// LocalAudioStore writes audio files under a base directory. Keys are
// slash-separated paths like "<session_id>/<question_index>.webm"; writes are
// atomic via rename so a crashed upload never leaves a readable partial file.
type LocalAudioStore struct {
	baseDir string
}

// NewLocalAudioStore creates the base directory if needed.
func NewLocalAudioStore(baseDir string) (*LocalAudioStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("op=storage.NewLocalAudioStore: base dir is required")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("op=storage.NewLocalAudioStore: %w", err)
	}
	return &LocalAudioStore{baseDir: baseDir}, nil
}

// Put stores one audio blob under key.
func (s *LocalAudioStore) Put(ctx domain.Context, key string, data []byte, mimeType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("op=storage.Put: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("op=storage.Put: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("op=storage.Put: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("op=storage.Put: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("op=storage.Put: %w", err)
	}
	return nil
}

// resolve maps a key to an absolute path and rejects traversal outside the
// base directory.
func (s *LocalAudioStore) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("op=storage.resolve: key %q: %w", key, domain.ErrInvalidArgument)
	}
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("op=storage.resolve: key %q: %w", key, domain.ErrInvalidArgument)
	}
	return path, nil
}
