package document

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat indicates no loader is registered for a file extension.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Loader reads a file into a Document.
type Loader interface {
	Load(ctx context.Context, path string) (Document, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) (Document, error)

func (f LoaderFunc) Load(ctx context.Context, path string) (Document, error) {
	return f(ctx, path)
}

// Registry maps file extensions to loaders.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register binds a loader to an extension such as ".xlsx". Extensions are
// matched case-insensitively; registering twice replaces the loader.
func (r *Registry) Register(ext string, l Loader) {
	r.loaders[normalizeExt(ext)] = l
}

// Lookup returns the loader for path's extension.
func (r *Registry) Lookup(path string) (Loader, error) {
	ext := normalizeExt(filepath.Ext(path))
	l, ok := r.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return l, nil
}

// Supports reports whether a loader exists for path's extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.loaders[normalizeExt(filepath.Ext(path))]
	return ok
}

// Load looks up the loader for path and loads it.
func (r *Registry) Load(ctx context.Context, path string) (Document, error) {
	l, err := r.Lookup(path)
	if err != nil {
		return nil, err
	}
	doc, err := l.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return doc, nil
}

// Extensions returns the registered extensions, sorted, with leading dot.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
