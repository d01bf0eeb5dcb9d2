package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/domain"
)

type questionBankYAML struct {
	Questions []questionYAML `yaml:"questions"`
}

type questionYAML struct {
	ID           string            `yaml:"id"`
	Text         string            `yaml:"text"`
	Category     string            `yaml:"category"`
	Difficulty   string            `yaml:"difficulty"`
	TimeLimitSec int               `yaml:"time_limit_sec"`
	Rubric       map[string]string `yaml:"rubric"`
}

// seedQuestionsFromYAML loads a question bank file and upserts each entry.
// Existing question ids are left untouched so reseeding is safe.
func seedQuestionsFromYAML(ctx domain.Context, repo domain.QuestionRepository, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("seed file not found: %s", path)
		}
		return err
	}

	// Accept both a document with a top-level questions key and a bare list.
	var doc questionBankYAML
	docErr := yaml.Unmarshal(b, &doc)
	if docErr != nil || len(doc.Questions) == 0 {
		if err := yaml.Unmarshal(b, &doc.Questions); err != nil {
			if docErr != nil {
				return fmt.Errorf("yaml parse: %w", docErr)
			}
			return fmt.Errorf("no questions to seed in %s", path)
		}
	}
	if len(doc.Questions) == 0 {
		return fmt.Errorf("no questions to seed in %s", path)
	}

	for i, q := range doc.Questions {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			return fmt.Errorf("question %d has no text", i)
		}
		id := strings.TrimSpace(q.ID)
		if id == "" {
			return fmt.Errorf("question %d (%q) has no id", i, truncateForLog(text))
		}
		if _, err := repo.Create(ctx, domain.Question{
			ID:           id,
			Text:         text,
			Category:     q.Category,
			Difficulty:   q.Difficulty,
			TimeLimitSec: q.TimeLimitSec,
			Rubric:       q.Rubric,
		}); err != nil {
			return fmt.Errorf("seed question %s: %w", id, err)
		}
	}
	return nil
}

func truncateForLog(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
