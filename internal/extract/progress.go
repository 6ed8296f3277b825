package extract

import "github.com/mvp-joe/formulax/internal/record"

// ProgressReporter provides callbacks for reporting extraction progress.
// Calls are serialized by the processor, so implementations need no locking.
type ProgressReporter interface {
	// OnDiscoveryComplete is called once the set of source documents is known.
	OnDiscoveryComplete(total int)

	// OnDocumentExtracted is called after a document's intermediate file is written.
	OnDocumentExtracted(source, output string, rec *record.Document)

	// OnDocumentFailed is called when a document could not be loaded or written.
	OnDocumentFailed(source string, err error)

	// OnComplete is called when the pass finishes.
	OnComplete(stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryComplete(total int)                                   {}
func (n *NoOpProgressReporter) OnDocumentExtracted(source, output string, rec *record.Document) {}
func (n *NoOpProgressReporter) OnDocumentFailed(source string, err error)                       {}
func (n *NoOpProgressReporter) OnComplete(stats *Stats)                                         {}
