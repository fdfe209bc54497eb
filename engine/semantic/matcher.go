package semantic

import (
	"context"
	"fmt"

	"github.com/upatik/helpdesk-chatbot/pkg/embed"
)

// Matcher embeds a normalized query and looks up its nearest intent.
type Matcher struct {
	embedder embed.Embedder
	index    Index
	size     int
	dim      int
}

// NewMatcher pairs an embedder with an index over table t.
func NewMatcher(e embed.Embedder, idx Index, t *Table) *Matcher {
	return &Matcher{embedder: e, index: idx, size: t.Len(), dim: t.Dim()}
}

// Index returns the index name.
func (m *Matcher) Index() string { return m.index.Name() }

// Prune drops index state left by earlier tables. Indexes without such
// state are a no-op.
func (m *Matcher) Prune(ctx context.Context) error {
	p, ok := m.index.(Pruner)
	if !ok {
		return nil
	}
	return p.Prune(ctx)
}

// Match returns the index of the nearest intent in [0, table length) and
// its cosine similarity. Every failure is an *EmbeddingError.
func (m *Matcher) Match(ctx context.Context, normalized string) (int, float64, error) {
	out, err := m.embedder.Embed(ctx, []string{normalized})
	if err != nil {
		return 0, 0, &EmbeddingError{Op: "embed query", Err: err}
	}
	unit, dim, err := embed.Check(out, 1)
	if err != nil {
		return 0, 0, &EmbeddingError{Op: "embed query", Err: err}
	}
	if dim != m.dim {
		return 0, 0, &EmbeddingError{Op: "embed query", Err: fmt.Errorf("%w: got %d, want %d", embed.ErrDimMismatch, dim, m.dim)}
	}
	idx, score, err := m.index.Nearest(ctx, unit[0])
	if err != nil {
		return 0, 0, &EmbeddingError{Op: m.index.Name() + " search", Err: err}
	}
	if idx < 0 || idx >= m.size {
		return 0, 0, &EmbeddingError{Op: m.index.Name() + " search", Err: fmt.Errorf("row %d out of range", idx)}
	}
	return idx, score, nil
}
