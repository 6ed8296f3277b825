package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/formulax/internal/batch"
	"github.com/mvp-joe/formulax/internal/catalog"
	"github.com/mvp-joe/formulax/internal/config"
	"github.com/mvp-joe/formulax/internal/intermediate"
)

var (
	batchOutputFlag string
	batchQuietFlag  bool
)

// batchFlagKeys maps config keys to the batch command's flags.
var batchFlagKeys = map[string]string{
	"intermediate.prefix": "prefix",
	"batch.size":          "batch-size",
	"batch.format":        "format",
	"batch.width":         "width",
	"batch.catalog":       "catalog",
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <rootdir>",
	Short: "Gather intermediate records into numbered batch files",
	Long: `Batch walks <rootdir> for intermediate files written by 'formulax extract',
groups their records into batches and writes one file per batch to the output
directory: 0001.json, 0002.json, ... (or .xml).

Formats:
  json          JSON dump wrapped to --width columns
  json-literal  same as json
  xml           indented XML with count attributes on every collection

Examples:
  # Batch into ./out using the default size of 20
  formulax batch ./reports -o ./out

  # XML batches of 100 records
  formulax batch ./reports -o ./out -f xml -b 100

  # Also record every batch in a SQLite catalog
  formulax batch ./reports -o ./out --catalog ./out/catalog.db
`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVarP(&batchOutputFlag, "output", "o", "", "Output directory for batch files")
	batchCmd.Flags().StringP("format", "f", batch.FormatJSON, "Output format: json, json-literal or xml")
	batchCmd.Flags().IntP("batch-size", "b", batch.DefaultSize, "Documents per batch file")
	batchCmd.Flags().Int("width", batch.DefaultWidth, "Line width of the json dump")
	batchCmd.Flags().String("catalog", "", "SQLite catalog to record batches in")
	batchCmd.Flags().String("prefix", intermediate.DefaultPrefix, "Intermediate file name prefix")
	batchCmd.Flags().BoolVarP(&batchQuietFlag, "quiet", "q", false, "Disable progress output")
	batchCmd.MarkFlagRequired("output")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted! Cancelling batching...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := loadConfig(cmd, batchFlagKeys)
	if err != nil {
		return err
	}

	return executeBatch(ctx, cfg, args[0], batchOutputFlag, batchOptions{
		out:     cmd.OutOrStdout(),
		quiet:   batchQuietFlag,
		verbose: verbose,
	})
}

type batchOptions struct {
	out     io.Writer
	quiet   bool
	verbose bool
}

// executeBatch writes the batch files for every intermediate under rootDir.
// An unknown format fails before anything is read or written.
func executeBatch(ctx context.Context, cfg *config.Config, rootDir, outDir string, opts batchOptions) error {
	encoder, err := batch.EncoderFor(cfg.Batch.Format, cfg.Batch.Width)
	if err != nil {
		return err
	}
	if outDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if err := requireDir(rootDir); err != nil {
		return err
	}

	store := intermediate.New(cfg.Intermediate.Prefix)
	collector, err := batch.NewCollector(store, cfg.Batch.Size, cfg.Paths.Ignore)
	if err != nil {
		return err
	}

	sink, err := batch.NewSink(outDir)
	if err != nil {
		return err
	}

	var recorder batch.Recorder
	var cat *catalog.Catalog
	if cfg.Batch.Catalog != "" {
		cat, err = catalog.Open(ctx, cfg.Batch.Catalog, catalog.RunInfo{
			RootDir:   rootDir,
			Format:    cfg.Batch.Format,
			BatchSize: cfg.Batch.Size,
		})
		if err != nil {
			return err
		}
		defer cat.Close()
		recorder = cat
	}

	progress := NewBatchProgressReporter(opts.out, opts.quiet, opts.verbose)
	pipeline := batch.NewPipeline(collector, encoder, sink, recorder, progress)

	if _, err := pipeline.Run(ctx, rootDir); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("batching cancelled")
		}
		return err
	}

	if cat != nil && !opts.quiet {
		summary, err := cat.Summary(ctx)
		if err != nil {
			return fmt.Errorf("failed to summarize catalog: %w", err)
		}
		fmt.Fprintf(opts.out, "  Catalog run %s: %s batches, %s documents, %s formulas (%s invalid)\n",
			cat.RunID(),
			formatNumber(summary.Batches),
			formatNumber(summary.Documents),
			formatNumber(summary.Formulas),
			formatNumber(summary.InvalidFormulas))
	}
	return nil
}
