package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/formulax/internal/discovery"
	"github.com/mvp-joe/formulax/internal/document"
	"github.com/mvp-joe/formulax/internal/intermediate"
	"github.com/mvp-joe/formulax/internal/record"
)

// ErrPathCollision is reported for a source document whose intermediate path
// was already claimed by an earlier document in the same directory.
var ErrPathCollision = errors.New("intermediate path already claimed")

// DefaultInclude lists the source patterns used when none are configured.
var DefaultInclude = []string{"**/*.xlsx", "**/*.xlsm", "**/*.ods", "**/*.csv"}

// Config controls which files the extraction pass visits and how many are
// processed at once.
type Config struct {
	Include []string
	Ignore  []string
	Workers int
}

// Stats tracks what was processed.
type Stats struct {
	Discovered      int
	Extracted       int
	Formulas        int
	InvalidFormulas int
	Errors          []*discovery.FileError
	ProcessingTime  time.Duration
}

// Failed returns the number of documents that produced no intermediate file.
func (s *Stats) Failed() int {
	return len(s.Errors)
}

// Processor runs the load → extract → write pipeline over source documents.
type Processor struct {
	cfg      Config
	registry *document.Registry
	store    *intermediate.Store
	progress ProgressReporter

	// owners maps each intermediate path to the source that claimed it.
	// Claims outlive a single pass so watch-mode re-extraction keeps them.
	owners map[string]string

	// mu serializes progress callbacks from worker goroutines and guards owners.
	mu sync.Mutex
}

// NewProcessor creates a new Processor. A nil progress reporter is replaced
// with a no-op one.
func NewProcessor(cfg Config, registry *document.Registry, store *intermediate.Store, progress ProgressReporter) *Processor {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}
	if len(cfg.Include) == 0 {
		cfg.Include = DefaultInclude
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Processor{
		cfg:      cfg,
		registry: registry,
		store:    store,
		progress: progress,
		owners:   make(map[string]string),
	}
}

// Run discovers source documents under root and processes them. Unreadable
// directory entries are reported as per-file errors.
func (p *Processor) Run(ctx context.Context, root string) (*Stats, error) {
	fd, err := discovery.New(root, p.cfg.Include, p.cfg.Ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	files, skipped, err := fd.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	stats, err := p.ProcessFiles(ctx, files)
	if stats != nil {
		stats.Errors = append(skipped, stats.Errors...)
	}
	return stats, err
}

// ProcessFiles extracts the given source documents in order. Per-document
// failures are collected in Stats; only cancellation stops the pass.
func (p *Processor) ProcessFiles(ctx context.Context, files []string) (*Stats, error) {
	startTime := time.Now()
	stats := &Stats{Errors: []*discovery.FileError{}}

	files, rejected := p.claim(files)
	stats.Discovered = len(files) + len(rejected)
	p.progress.OnDiscoveryComplete(stats.Discovered)
	for _, fe := range rejected {
		p.fail(stats, fe)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for _, file := range files {
		// Check for cancellation
		if err := gctx.Err(); err != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rec, output, err := p.processFile(gctx, file)
			if err != nil {
				p.fail(stats, &discovery.FileError{Path: file, Err: err})
				return nil
			}

			p.mu.Lock()
			defer p.mu.Unlock()
			stats.Extracted++
			stats.Formulas += len(rec.Formulas)
			stats.InvalidFormulas += rec.InvalidCount()
			p.progress.OnDocumentExtracted(file, output, rec)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	stats.ProcessingTime = time.Since(startTime)
	p.progress.OnComplete(stats)
	return stats, nil
}

// processFile loads, extracts and writes one document.
func (p *Processor) processFile(ctx context.Context, file string) (*record.Document, string, error) {
	doc, err := p.registry.Load(ctx, file)
	if err != nil {
		return nil, "", err
	}

	rec := Extract(file, doc)
	output, err := p.store.Write(rec)
	if err != nil {
		return nil, "", fmt.Errorf("write intermediate: %w", err)
	}
	return rec, output, nil
}

// claim assigns each intermediate path to the first source document that
// maps to it, across every pass of this processor. Unsupported files and
// later claimants are rejected. An owner gives up its path once its source
// no longer exists.
func (p *Processor) claim(files []string) (accepted []string, rejected []*discovery.FileError) {
	p.mu.Lock()
	defer p.mu.Unlock()

	accepted = make([]string, 0, len(files))

	for _, file := range files {
		if !p.registry.Supports(file) {
			rejected = append(rejected, &discovery.FileError{
				Path: file,
				Err:  fmt.Errorf("%w: %s", document.ErrUnsupportedFormat, filepath.Ext(file)),
			})
			continue
		}

		out := p.store.PathFor(file)
		if owner, ok := p.owners[out]; ok && owner != file && sourceExists(owner) {
			rejected = append(rejected, &discovery.FileError{
				Path: file,
				Err:  fmt.Errorf("%w: %s by %s", ErrPathCollision, out, owner),
			})
			continue
		}
		p.owners[out] = file
		accepted = append(accepted, file)
	}
	return accepted, rejected
}

func sourceExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (p *Processor) fail(stats *Stats, fe *discovery.FileError) {
	p.mu.Lock()
	defer p.mu.Unlock()
	log.Printf("Warning: failed to extract %s: %v\n", fe.Path, fe.Err)
	stats.Errors = append(stats.Errors, fe)
	p.progress.OnDocumentFailed(fe.Path, fe.Err)
}
