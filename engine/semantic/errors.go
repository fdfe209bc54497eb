// Package semantic scores queries against canonical questions by cosine
// similarity of their embeddings.
package semantic

import "errors"

var (
	// ErrEmptyTable is returned when building a table with no rows.
	ErrEmptyTable = errors.New("semantic: empty embedding table")
	// ErrNoResult is returned when an index search yields no row.
	ErrNoResult = errors.New("semantic: no result")
)

// EmbeddingError reports a failed or malformed embedding or index lookup.
// Callers recover from it by falling back to lexical matching.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string { return "semantic: " + e.Op + ": " + e.Err.Error() }

func (e *EmbeddingError) Unwrap() error { return e.Err }
