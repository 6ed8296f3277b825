package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file, environment variables and flags.
	// Priority: defaults → config file → environment variables → flags (flags win)
	Load() (*Config, error)
}

// LoaderOption customizes a loader.
type LoaderOption func(*loader)

// WithConfigFile reads the given file instead of searching .formulax/.
func WithConfigFile(path string) LoaderOption {
	return func(l *loader) {
		l.configFile = path
	}
}

// WithFlags binds command-line flags to config keys. Only flags the user
// actually set override lower layers. keys maps config key to flag name.
func WithFlags(flags *pflag.FlagSet, keys map[string]string) LoaderOption {
	return func(l *loader) {
		l.flags = flags
		l.flagKeys = keys
	}
}

type loader struct {
	rootDir    string
	configFile string
	flags      *pflag.FlagSet
	flagKeys   map[string]string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string, opts ...LoaderOption) Loader {
	l := &loader{
		rootDir: rootDir,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Command-line flags that were set
// 2. Environment variables (FORMULAX_*)
// 3. Config file (.formulax/config.yml or .formulax/config.yaml, or --config)
// 4. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	// Set up config file search
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".formulax"))
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("FORMULAX")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., FORMULAX_BATCH_SIZE)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind environment variables to config keys
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if l.flags != nil {
		for key, name := range l.flagKeys {
			flag := l.flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	setDefaults(v)

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

var envKeys = []string{
	"intermediate.prefix",
	"paths.documents",
	"paths.ignore",
	"extract.workers",
	"batch.size",
	"batch.format",
	"batch.width",
	"batch.catalog",
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("intermediate.prefix", defaults.Intermediate.Prefix)

	v.SetDefault("paths.documents", defaults.Paths.Documents)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("extract.workers", defaults.Extract.Workers)

	v.SetDefault("batch.size", defaults.Batch.Size)
	v.SetDefault("batch.format", defaults.Batch.Format)
	v.SetDefault("batch.width", defaults.Batch.Width)
	v.SetDefault("batch.catalog", defaults.Batch.Catalog)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig(opts ...LoaderOption) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd, opts...).Load()
}
