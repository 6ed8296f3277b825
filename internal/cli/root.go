package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/formulax/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "formulax",
	Short: "Formulax - extract spreadsheet formulas into batched datasets",
	Long: `Formulax walks a tree of spreadsheet documents (XLSX, ODS, CSV), records
every formula cell and named expression next to its source document, and later
gathers those records into numbered batch files (JSON or XML).

The two passes are independent:
  formulax extract <rootdir>            writes <prefix>formulas.json per document
  formulax batch <rootdir> -o <outdir>  writes 0001.json, 0002.json, ...`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .formulax/config.yml in the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads configuration for a command. Flags named in keys override
// the matching config keys when the user set them.
func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, error) {
	opts := []config.LoaderOption{config.WithFlags(cmd.Flags(), keys)}
	if cfgFile != "" {
		opts = append(opts, config.WithConfigFile(cfgFile))
	}

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if verbose {
		log.Printf("Config: prefix=%q workers=%d batch.size=%d batch.format=%s batch.width=%d\n",
			cfg.Intermediate.Prefix, cfg.Extract.Workers, cfg.Batch.Size, cfg.Batch.Format, cfg.Batch.Width)
	}
	return cfg, nil
}

// requireDir fails unless path is an existing directory.
func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("root directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root directory: %s is not a directory", path)
	}
	return nil
}
