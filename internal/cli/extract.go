package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/formulax/internal/config"
	"github.com/mvp-joe/formulax/internal/discovery"
	"github.com/mvp-joe/formulax/internal/extract"
	"github.com/mvp-joe/formulax/internal/intermediate"
	"github.com/mvp-joe/formulax/internal/watcher"
)

var (
	extractQuietFlag bool
	extractWatchFlag bool
)

// extractFlagKeys maps config keys to the extract command's flags.
var extractFlagKeys = map[string]string{
	"intermediate.prefix": "prefix",
	"extract.workers":     "workers",
}

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <rootdir>",
	Short: "Extract formulas from every spreadsheet under a directory",
	Long: `Extract walks <rootdir> for spreadsheet documents, records each formula
cell and named expression, and writes the record next to its source document
as <prefix>formulas.json.

Formulas that fail to parse are recorded as invalid rather than aborting the
document. Documents that cannot be loaded are reported and skipped.

Examples:
  # Extract everything under ./reports
  formulax extract ./reports

  # Use a different intermediate prefix and more workers
  formulax extract ./reports --prefix _fx_ --workers 8

  # Keep running and re-extract documents as they change
  formulax extract ./reports --watch
`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().String("prefix", intermediate.DefaultPrefix, "Intermediate file name prefix")
	extractCmd.Flags().Int("workers", 4, "Documents processed concurrently")
	extractCmd.Flags().BoolVarP(&extractQuietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	extractCmd.Flags().BoolVarP(&extractWatchFlag, "watch", "w", false, "Watch for document changes and re-extract them")
}

func runExtract(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted! Cancelling extraction...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := loadConfig(cmd, extractFlagKeys)
	if err != nil {
		return err
	}

	return executeExtract(ctx, cfg, args[0], extractOptions{
		out:     cmd.OutOrStdout(),
		quiet:   extractQuietFlag,
		verbose: verbose,
		watch:   extractWatchFlag,
	})
}

type extractOptions struct {
	out     io.Writer
	quiet   bool
	verbose bool
	watch   bool
}

// executeExtract runs one extraction pass over rootDir and, in watch mode,
// keeps re-extracting changed documents until ctx is cancelled.
func executeExtract(ctx context.Context, cfg *config.Config, rootDir string, opts extractOptions) error {
	if err := requireDir(rootDir); err != nil {
		return err
	}

	store := intermediate.New(cfg.Intermediate.Prefix)
	registry := extract.DefaultRegistry()
	progress := NewExtractProgressReporter(opts.out, opts.quiet, opts.verbose)

	proc := extract.NewProcessor(extract.Config{
		Include: cfg.Paths.Documents,
		Ignore:  cfg.Paths.Ignore,
		Workers: cfg.Extract.Workers,
	}, registry, store, progress)

	if _, err := proc.Run(ctx, rootDir); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extraction cancelled")
		}
		return fmt.Errorf("extraction failed: %w", err)
	}

	if !opts.watch {
		return nil
	}
	return watchAndExtract(ctx, cfg, rootDir, store, proc, opts)
}

// watchAndExtract re-extracts documents under rootDir as they change. It
// blocks until ctx is cancelled.
func watchAndExtract(ctx context.Context, cfg *config.Config, rootDir string, store *intermediate.Store, proc *extract.Processor, opts extractOptions) error {
	fd, err := discovery.New(rootDir, cfg.Paths.Documents, cfg.Paths.Ignore)
	if err != nil {
		return fmt.Errorf("failed to create file discovery: %w", err)
	}

	extensions := cfg.DocumentExtensions()
	if len(extensions) == 0 {
		extensions = extract.DefaultRegistry().Extensions()
	}

	w, err := watcher.New(watcher.Config{
		Root:       rootDir,
		Extensions: extensions,
		Skip: func(path string) bool {
			return store.IsIntermediate(path) || !fd.Match(path)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	err = w.Start(ctx, func(files []string) {
		existing := make([]string, 0, len(files))
		for _, file := range files {
			if _, err := os.Stat(file); err == nil {
				existing = append(existing, file)
			}
		}
		if len(existing) == 0 {
			return
		}
		if _, err := proc.ProcessFiles(ctx, existing); err != nil && ctx.Err() == nil {
			log.Printf("Warning: re-extraction failed: %v\n", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	if !opts.quiet {
		log.Println("Watching for changes...")
	}

	<-ctx.Done()
	w.Stop()
	<-w.Done()

	if !opts.quiet {
		log.Println("Watch mode stopped")
	}
	return nil
}
