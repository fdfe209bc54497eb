package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/upatik/helpdesk-chatbot/pkg/embed"
	"github.com/upatik/helpdesk-chatbot/pkg/fn"
)

// Table holds one unit vector per intent, index-aligned with the intent
// set it was built from. It is immutable once built.
type Table struct {
	rows [][]float32
	dim  int
}

// NewTable validates that vectors holds exactly n rows of one dimension
// and stores them unit-normalised.
func NewTable(vectors [][]float32, n int) (*Table, error) {
	if n == 0 {
		return nil, ErrEmptyTable
	}
	rows, dim, err := embed.Check(vectors, n)
	if err != nil {
		return nil, err
	}
	return &Table{rows: rows, dim: dim}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Dim returns the vector dimension.
func (t *Table) Dim() int { return t.dim }

// Row returns row i. The slice must not be modified.
func (t *Table) Row(i int) []float32 { return t.rows[i] }

// BuildOpts controls table construction.
type BuildOpts struct {
	BatchSize int
	Retry     fn.RetryOpts
	Logger    *slog.Logger
}

// DefaultBuildOpts embeds four texts per call with one retry.
var DefaultBuildOpts = BuildOpts{
	BatchSize: 4,
	Retry:     fn.RetryOpts{MaxAttempts: 2, InitialWait: 500 * time.Millisecond, MaxWait: 5 * time.Second, Jitter: true},
}

// Build embeds the normalized questions in batches and returns their
// table. Any batch that still fails after retries fails the build with
// an *EmbeddingError.
func Build(ctx context.Context, e embed.Embedder, normalized []string, opts BuildOpts) (*Table, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBuildOpts.BatchSize
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultBuildOpts.Retry
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(normalized) == 0 {
		return nil, ErrEmptyTable
	}

	batches := fn.Chunk(normalized, opts.BatchSize)
	vectors := make([][]float32, 0, len(normalized))
	for i, batch := range batches {
		r := fn.Retry(ctx, opts.Retry, func(ctx context.Context) fn.Result[[][]float32] {
			return fn.FromPair(e.Embed(ctx, batch))
		})
		out, err := r.Unwrap()
		if err != nil {
			return nil, &EmbeddingError{Op: fmt.Sprintf("build batch %d/%d", i+1, len(batches)), Err: err}
		}
		if len(out) != len(batch) {
			return nil, &EmbeddingError{Op: fmt.Sprintf("build batch %d/%d", i+1, len(batches)), Err: embed.ErrCountMismatch}
		}
		vectors = append(vectors, out...)
		logger.Debug("embedded batch", "batch", i+1, "of", len(batches))
	}

	t, err := NewTable(vectors, len(normalized))
	if err != nil {
		return nil, &EmbeddingError{Op: "build", Err: err}
	}
	logger.Info("embedding table built", "rows", t.Len(), "dim", t.Dim())
	return t, nil
}
