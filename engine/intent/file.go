package intent

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
)

// FileSource reads a JSON array of {pertanyaan, jawaban, kategori} objects.
type FileSource struct {
	Path string
}

// NewFileSource returns a source for the dataset file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Name() string { return "file:" + f.Path }

// Load reads and validates the file. Every failure is a *DatasetError.
func (f *FileSource) Load(_ context.Context) (Set, error) {
	if f.Path == "" {
		return nil, &DatasetError{Source: f.Name(), Err: ErrSourceMissing}
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = ErrSourceMissing
		}
		return nil, &DatasetError{Source: f.Name(), Err: err}
	}
	return Parse(f.Name(), data)
}

// Parse decodes and validates a JSON dataset.
func Parse(source string, data []byte) (Set, error) {
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, &DatasetError{Source: source, Err: err}
	}
	if err := set.Validate(); err != nil {
		return nil, &DatasetError{Source: source, Err: err}
	}
	return set, nil
}
