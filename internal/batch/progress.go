package batch

// ProgressReporter provides callbacks for reporting batch progress.
type ProgressReporter interface {
	// OnBatchStart is called before a batch is rendered.
	OnBatchStart(index, documents int)

	// OnBatchWritten is called after a batch file is in place.
	OnBatchWritten(index int, path string)

	// OnBatchFailed is called when a batch could not be rendered or written.
	OnBatchFailed(index int, err error)

	// OnReadError is called for an intermediate file that could not be read.
	OnReadError(path string, err error)

	// OnComplete is called when the pass finishes.
	OnComplete(stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnBatchStart(index, documents int)     {}
func (n *NoOpProgressReporter) OnBatchWritten(index int, path string) {}
func (n *NoOpProgressReporter) OnBatchFailed(index int, err error)    {}
func (n *NoOpProgressReporter) OnReadError(path string, err error)    {}
func (n *NoOpProgressReporter) OnComplete(stats *Stats)               {}
