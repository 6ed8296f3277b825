package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/formulax/internal/intermediate"
)

// Sink writes rendered batches into an output directory.
type Sink struct {
	dir string
}

// NewSink creates the output directory if needed.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// Dir returns the output directory.
func (s *Sink) Dir() string {
	return s.dir
}

// Write stores a rendered batch under its numbered file name and returns the
// path. The file appears complete or not at all.
func (s *Sink) Write(index int, ext string, data []byte) (string, error) {
	path := filepath.Join(s.dir, FileName(index, ext))
	if err := intermediate.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("batch %d: %w", index, err)
	}
	return path, nil
}
