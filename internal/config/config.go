package config

import (
	"github.com/mvp-joe/formulax/internal/batch"
	"github.com/mvp-joe/formulax/internal/extract"
	"github.com/mvp-joe/formulax/internal/intermediate"
)

// Config represents the complete formulax configuration.
// It can be loaded from .formulax/config.yml with environment variable and
// command-line flag overrides.
type Config struct {
	Intermediate IntermediateConfig `yaml:"intermediate" mapstructure:"intermediate"`
	Paths        PathsConfig        `yaml:"paths" mapstructure:"paths"`
	Extract      ExtractConfig      `yaml:"extract" mapstructure:"extract"`
	Batch        BatchConfig        `yaml:"batch" mapstructure:"batch"`
}

// IntermediateConfig names the per-document intermediate files.
type IntermediateConfig struct {
	Prefix string `yaml:"prefix" mapstructure:"prefix"` // file name is <prefix>formulas.json
}

// PathsConfig defines which source documents to extract and which to ignore.
type PathsConfig struct {
	Documents []string `yaml:"documents" mapstructure:"documents"` // glob patterns for source documents
	Ignore    []string `yaml:"ignore" mapstructure:"ignore"`       // glob patterns to ignore
}

// ExtractConfig tunes the extraction pass.
type ExtractConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // documents processed concurrently
}

// BatchConfig tunes the batch pass.
type BatchConfig struct {
	Size    int    `yaml:"size" mapstructure:"size"`       // documents per output file
	Format  string `yaml:"format" mapstructure:"format"`   // json, json-literal or xml
	Width   int    `yaml:"width" mapstructure:"width"`     // line width of the json dump
	Catalog string `yaml:"catalog" mapstructure:"catalog"` // optional SQLite catalog path
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Intermediate: IntermediateConfig{
			Prefix: intermediate.DefaultPrefix,
		},
		Paths: PathsConfig{
			Documents: append([]string(nil), extract.DefaultInclude...),
			Ignore: []string{
				".git/**",
				"node_modules/**",
				"~$*",
				"**/~$*",
				"**/.~lock.*",
			},
		},
		Extract: ExtractConfig{
			Workers: 4,
		},
		Batch: BatchConfig{
			Size:    batch.DefaultSize,
			Format:  batch.FormatJSON,
			Width:   batch.DefaultWidth,
			Catalog: "", // Empty disables the catalog
		},
	}
}

// DocumentExtensions extracts unique file extensions from the document
// patterns, with leading dot (e.g., []string{".xlsx", ".ods"}).
func (c *Config) DocumentExtensions() []string {
	seen := make(map[string]bool)
	extensions := []string{}

	for _, pattern := range c.Paths.Documents {
		if ext := extractExtension(pattern); ext != "" && !seen[ext] {
			seen[ext] = true
			extensions = append(extensions, ext)
		}
	}

	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.xlsx" -> ".xlsx", "*.ods" -> ".ods"
func extractExtension(pattern string) string {
	// Find the last occurrence of *.ext pattern
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
