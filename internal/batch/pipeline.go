package batch

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"
)

// Recorder receives every batch that was written. The SQLite catalog
// implements it.
type Recorder interface {
	RecordBatch(ctx context.Context, file, format string, b *Batch) error
}

// Stats tracks what a pipeline run produced.
type Stats struct {
	Documents      int
	Batches        int
	FailedBatches  int
	ReadErrors     int
	RecorderErrors int
	Files          []string
	ProcessingTime time.Duration
}

// Pipeline glues collection, rendering and writing. Batches are built one at
// a time; each is rendered fully in memory before its file is written.
type Pipeline struct {
	collector *Collector
	encoder   Encoder
	sink      *Sink
	recorder  Recorder
	progress  ProgressReporter
}

// NewPipeline creates a pipeline. recorder and progress may be nil.
func NewPipeline(collector *Collector, encoder Encoder, sink *Sink, recorder Recorder, progress ProgressReporter) *Pipeline {
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}
	return &Pipeline{
		collector: collector,
		encoder:   encoder,
		sink:      sink,
		recorder:  recorder,
		progress:  progress,
	}
}

// Run collects intermediates under root and writes one file per batch. A
// batch that fails to render or write is counted and skipped; later batches
// still run. Only walk failures and cancellation are returned as errors.
func (p *Pipeline) Run(ctx context.Context, root string) (*Stats, error) {
	startTime := time.Now()
	stats := &Stats{Files: []string{}}

	p.collector.OnReadError = func(path string, err error) {
		log.Printf("Warning: failed to read %s: %v\n", path, err)
		p.progress.OnReadError(path, err)
	}

	cstats, err := p.collector.Collect(ctx, root, func(b *Batch) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		p.progress.OnBatchStart(b.Index, len(b.Documents))
		path, err := p.writeBatch(b)
		if err != nil {
			log.Printf("Warning: failed to write batch %d: %v\n", b.Index, err)
			stats.FailedBatches++
			p.progress.OnBatchFailed(b.Index, err)
			return nil
		}
		stats.Files = append(stats.Files, path)
		p.progress.OnBatchWritten(b.Index, path)

		if p.recorder != nil {
			if err := p.recorder.RecordBatch(ctx, path, p.encoder.Extension(), b); err != nil {
				log.Printf("Warning: failed to record batch %d: %v\n", b.Index, err)
				stats.RecorderErrors++
			}
		}
		return nil
	})
	if cstats != nil {
		stats.Documents = cstats.Documents
		stats.Batches = cstats.Batches
		stats.ReadErrors = len(cstats.ReadErrors)
	}
	if err != nil {
		return stats, fmt.Errorf("failed to collect batches: %w", err)
	}

	stats.ProcessingTime = time.Since(startTime)
	p.progress.OnComplete(stats)
	return stats, nil
}

func (p *Pipeline) writeBatch(b *Batch) (string, error) {
	var buf bytes.Buffer
	if err := p.encoder.Encode(&buf, b); err != nil {
		return "", err
	}
	return p.sink.Write(b.Index, p.encoder.Extension(), buf.Bytes())
}
