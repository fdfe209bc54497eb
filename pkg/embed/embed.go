// Package embed defines the text embedding capability and helpers for
// selecting, validating and caching embedding providers.
package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Embedder maps texts to vectors, one per input in the same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

// Sentinel errors for malformed embedder output.
var (
	ErrCountMismatch = errors.New("embed: vector count does not match input count")
	ErrDimMismatch   = errors.New("embed: inconsistent vector dimensions")
	ErrEmptyVector   = errors.New("embed: empty vector")
	ErrZeroVector    = errors.New("embed: zero-norm vector")
	ErrNonFinite     = errors.New("embed: non-finite component")
)

// Unit returns v scaled to unit length.
func Unit(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, ErrEmptyVector
	}
	var sum float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, ErrNonFinite
		}
		sum += f * f
	}
	if sum == 0 {
		return nil, ErrZeroVector
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// Check validates that out holds n vectors of equal, non-zero dimension
// and returns them unit-normalised along with that dimension.
func Check(out [][]float32, n int) ([][]float32, int, error) {
	if len(out) != n {
		return nil, 0, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(out), n)
	}
	if n == 0 {
		return out, 0, nil
	}
	dim := len(out[0])
	unit := make([][]float32, n)
	for i, v := range out {
		if len(v) != dim {
			return nil, 0, fmt.Errorf("%w: vector %d has %d, want %d", ErrDimMismatch, i, len(v), dim)
		}
		u, err := Unit(v)
		if err != nil {
			return nil, 0, fmt.Errorf("vector %d: %w", i, err)
		}
		unit[i] = u
	}
	return unit, dim, nil
}

// Dot returns the dot product of two equal-length vectors, which is the
// cosine similarity when both are unit length.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
