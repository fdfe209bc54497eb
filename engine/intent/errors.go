package intent

import (
	"errors"
	"fmt"
)

// Sentinel errors for dataset validation.
var (
	ErrEmptyDataset    = errors.New("dataset has no records")
	ErrMissingQuestion = errors.New("missing question")
	ErrMissingCategory = errors.New("missing category")
	ErrSourceMissing   = errors.New("dataset source not found")
)

// DatasetError reports a missing or malformed dataset source.
type DatasetError struct {
	Source string
	Err    error
}

func (e *DatasetError) Error() string {
	return fmt.Sprintf("dataset %s: %v", e.Source, e.Err)
}

func (e *DatasetError) Unwrap() error { return e.Err }
