package semantic

import (
	"context"
	"fmt"
	"math"

	"github.com/upatik/helpdesk-chatbot/pkg/embed"
)

// Index finds the table row nearest to a unit query vector.
type Index interface {
	Nearest(ctx context.Context, query []float32) (int, float64, error)
	Name() string
}

// Pruner is implemented by indexes that keep rows of superseded tables.
type Pruner interface {
	Prune(ctx context.Context) error
}

// MemoryIndex scans a Table linearly.
type MemoryIndex struct {
	table *Table
}

// NewMemoryIndex returns an index over t.
func NewMemoryIndex(t *Table) *MemoryIndex { return &MemoryIndex{table: t} }

func (m *MemoryIndex) Name() string { return "memory" }

// Nearest returns the row with the highest cosine similarity. Ties go to
// the lowest index.
func (m *MemoryIndex) Nearest(_ context.Context, query []float32) (int, float64, error) {
	if m.table == nil || m.table.Len() == 0 {
		return 0, 0, ErrEmptyTable
	}
	if len(query) != m.table.Dim() {
		return 0, 0, fmt.Errorf("%w: query has %d, table has %d", embed.ErrDimMismatch, len(query), m.table.Dim())
	}
	best, bestScore := -1, math.Inf(-1)
	for i := 0; i < m.table.Len(); i++ {
		if s := embed.Dot(query, m.table.Row(i)); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best, bestScore, nil
}
