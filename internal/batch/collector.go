// Package batch aggregates intermediate formula records into fixed-size
// batches and renders each batch to a numbered output file.
package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/formulax/internal/discovery"
	"github.com/mvp-joe/formulax/internal/intermediate"
	"github.com/mvp-joe/formulax/internal/record"
)

// DefaultSize is the number of documents per batch.
const DefaultSize = 20

// ErrInvalidBatchSize is returned for a batch size below one.
var ErrInvalidBatchSize = errors.New("batch size must be at least 1")

// Batch is a group of records rendered to one output file. Index is 1-based.
type Batch struct {
	Index     int
	Documents []*record.Document
}

// CollectStats summarizes one collection walk.
type CollectStats struct {
	Documents  int
	Batches    int
	ReadErrors []*discovery.FileError
}

// Collector walks a tree for intermediate files and groups them into batches.
type Collector struct {
	store  *intermediate.Store
	size   int
	ignore []string

	// OnReadError, if set, is called for each intermediate file that could
	// not be read or decoded. The walk continues regardless.
	OnReadError func(path string, err error)
}

// NewCollector creates a collector emitting batches of at most size records.
func NewCollector(store *intermediate.Store, size int, ignore []string) (*Collector, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, size)
	}
	return &Collector{store: store, size: size, ignore: ignore}, nil
}

// Size returns the batch size.
func (c *Collector) Size() int {
	return c.size
}

// Collect walks root in lexical order and calls emit each time size records
// have accumulated, then once more for a non-empty remainder. Files that fail
// to read are skipped and recorded. An error from emit stops the walk and is
// returned.
func (c *Collector) Collect(ctx context.Context, root string, emit func(*Batch) error) (*CollectStats, error) {
	include := []string{"**/" + glob.QuoteMeta(c.store.Filename())}
	fd, err := discovery.New(root, include, c.ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	stats := &CollectStats{ReadErrors: []*discovery.FileError{}}
	pending := make([]*record.Document, 0, c.size)

	flush := func() error {
		stats.Batches++
		b := &Batch{Index: stats.Batches, Documents: pending}
		pending = make([]*record.Document, 0, c.size)
		return emit(b)
	}

	err = fd.Walk(ctx, func(path string, err error) error {
		if err == nil {
			var rec *record.Document
			if rec, err = c.store.Read(path); err == nil {
				stats.Documents++
				pending = append(pending, rec)
				if len(pending) == c.size {
					return flush()
				}
				return nil
			}
		}

		stats.ReadErrors = append(stats.ReadErrors, &discovery.FileError{Path: path, Err: err})
		if c.OnReadError != nil {
			c.OnReadError(path, err)
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	if len(pending) > 0 {
		if err := flush(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
