// Package intent defines the canonical question/answer records the chatbot
// matches against, and the sources they are loaded from.
package intent

import (
	"context"
	"fmt"
)

// Intent is one canonical question with its answer and category.
// The position of an Intent in its Set is its stable identifier.
type Intent struct {
	Question string `json:"pertanyaan"`
	Answer   string `json:"jawaban"`
	Category string `json:"kategori"`
}

// Set is an ordered, immutable collection of intents.
type Set []Intent

// Validate checks that every record has a question and a category.
func (s Set) Validate() error {
	if len(s) == 0 {
		return ErrEmptyDataset
	}
	for i, it := range s {
		if it.Question == "" {
			return fmt.Errorf("record %d: %w", i, ErrMissingQuestion)
		}
		if it.Category == "" {
			return fmt.Errorf("record %d: %w", i, ErrMissingCategory)
		}
	}
	return nil
}

// Questions returns the questions in order.
func (s Set) Questions() []string {
	out := make([]string, len(s))
	for i, it := range s {
		out[i] = it.Question
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func (s Set) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range s {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	return out
}

// Source produces an intent set.
type Source interface {
	Load(ctx context.Context) (Set, error)
	Name() string
}
