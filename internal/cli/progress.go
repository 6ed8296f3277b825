package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/formulax/internal/batch"
	"github.com/mvp-joe/formulax/internal/extract"
	"github.com/mvp-joe/formulax/internal/record"
)

// ExtractProgressReporter prints a summary for each extracted document and
// keeps a progress bar below it. In verbose mode it also prints the
// intermediate path and drops the bar.
type ExtractProgressReporter struct {
	out     io.Writer
	quiet   bool
	verbose bool
	bar     *progressbar.ProgressBar
}

// NewExtractProgressReporter creates a reporter writing to out.
func NewExtractProgressReporter(out io.Writer, quiet, verbose bool) *ExtractProgressReporter {
	return &ExtractProgressReporter{
		out:     out,
		quiet:   quiet,
		verbose: verbose,
	}
}

func (r *ExtractProgressReporter) OnDiscoveryComplete(total int) {
	if r.quiet {
		return
	}
	fmt.Fprintf(r.out, "Found %s source documents\n", formatNumber(total))
	if r.verbose || total == 0 {
		return
	}

	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription("Extracting formulas"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("docs/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(r.out)
		}),
	)
}

func (r *ExtractProgressReporter) OnDocumentExtracted(source, output string, rec *record.Document) {
	if r.quiet {
		return
	}
	if r.bar != nil {
		r.bar.Clear()
	}
	fmt.Fprintf(r.out, "processing %s...\n", source)
	for _, line := range extract.Summary(rec) {
		fmt.Fprintln(r.out, line)
	}
	if r.verbose {
		fmt.Fprintf(r.out, "  -> %s\n", output)
	}
	if r.bar != nil {
		r.bar.Add(1)
	}
}

func (r *ExtractProgressReporter) OnDocumentFailed(source string, err error) {
	if r.quiet {
		return
	}
	// The processor already logged the failure
	if r.bar != nil {
		r.bar.Add(1)
	}
}

func (r *ExtractProgressReporter) OnComplete(stats *extract.Stats) {
	if r.quiet {
		return
	}
	if r.bar != nil {
		r.bar.Finish()
		r.bar = nil
	}

	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "✓ Extraction complete: %s documents in %.1fs\n",
		formatNumber(stats.Extracted), stats.ProcessingTime.Seconds())
	fmt.Fprintf(r.out, "  Formulas: %s (%s invalid)\n",
		formatNumber(stats.Formulas), formatNumber(stats.InvalidFormulas))
	if n := stats.Failed(); n > 0 {
		fmt.Fprintf(r.out, "  Failed:   %s\n", formatNumber(n))
		for _, fe := range stats.Errors {
			fmt.Fprintf(r.out, "    %s\n", fe.Error())
		}
	}
}

// BatchProgressReporter reports batch progress with a spinner, since the
// number of intermediates is not known up front.
type BatchProgressReporter struct {
	out     io.Writer
	quiet   bool
	verbose bool
	bar     *progressbar.ProgressBar
}

// NewBatchProgressReporter creates a reporter writing to out.
func NewBatchProgressReporter(out io.Writer, quiet, verbose bool) *BatchProgressReporter {
	return &BatchProgressReporter{
		out:     out,
		quiet:   quiet,
		verbose: verbose,
	}
}

func (r *BatchProgressReporter) OnBatchStart(index, documents int) {
	if r.quiet {
		return
	}
	if r.verbose {
		fmt.Fprintf(r.out, "dumping batch %d (%d documents)...\n", index, documents)
		return
	}

	if r.bar == nil {
		r.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionThrottle(65*time.Millisecond),
		)
	}
	r.bar.Describe(fmt.Sprintf("dumping batch %d...", index))
	r.bar.Add(documents)
}

func (r *BatchProgressReporter) OnBatchWritten(index int, path string) {
	if r.quiet || !r.verbose {
		return
	}
	fmt.Fprintf(r.out, "  -> %s\n", path)
}

func (r *BatchProgressReporter) OnBatchFailed(index int, err error) {
	if r.quiet || !r.verbose {
		return
	}
	fmt.Fprintf(r.out, "  batch %d failed: %v\n", index, err)
}

// OnReadError is a no-op; the pipeline logs unreadable intermediates and
// they are counted in the final stats.
func (r *BatchProgressReporter) OnReadError(path string, err error) {}

func (r *BatchProgressReporter) OnComplete(stats *batch.Stats) {
	if r.quiet {
		return
	}
	if r.bar != nil {
		r.bar.Finish()
		r.bar = nil
		fmt.Fprintln(r.out)
	}

	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "✓ Batching complete: %s documents in %s batches (%.1fs)\n",
		formatNumber(stats.Documents), formatNumber(stats.Batches), stats.ProcessingTime.Seconds())
	if stats.FailedBatches > 0 {
		fmt.Fprintf(r.out, "  Failed batches:          %s\n", formatNumber(stats.FailedBatches))
	}
	if stats.ReadErrors > 0 {
		fmt.Fprintf(r.out, "  Unreadable intermediates: %s\n", formatNumber(stats.ReadErrors))
	}
	if stats.RecorderErrors > 0 {
		fmt.Fprintf(r.out, "  Catalog errors:          %s\n", formatNumber(stats.RecorderErrors))
	}
}

// formatNumber formats integer with thousand separators.
// Examples: 1234 -> "1,234", 1234567 -> "1,234,567"
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
