package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/formulax/internal/batch"
)

var (
	// ErrInvalidPrefix indicates an intermediate prefix that is not a plain file name part
	ErrInvalidPrefix = errors.New("invalid intermediate prefix")

	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrEmptyDocuments indicates no source document patterns
	ErrEmptyDocuments = errors.New("empty document patterns")

	// ErrInvalidWorkers indicates a non-positive worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidBatchSize indicates a non-positive batch size
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrInvalidWidth indicates a non-positive literal dump width
	ErrInvalidWidth = errors.New("invalid output width")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateIntermediate(&cfg.Intermediate); err != nil {
		errs = append(errs, err)
	}

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if cfg.Extract.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidWorkers, cfg.Extract.Workers))
	}

	if err := validateBatch(&cfg.Batch); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateIntermediate(cfg *IntermediateConfig) error {
	if strings.ContainsAny(cfg.Prefix, `/\`) || cfg.Prefix == "." || cfg.Prefix == ".." {
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidPrefix, cfg.Prefix)
	}
	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	if len(cfg.Documents) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one pattern required", ErrEmptyDocuments))
	}

	for _, pattern := range append(append([]string{}, cfg.Documents...), cfg.Ignore...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateBatch(cfg *BatchConfig) error {
	var errs []error

	if cfg.Size <= 0 {
		errs = append(errs, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidBatchSize, cfg.Size))
	}

	if _, err := batch.EncoderFor(cfg.Format, cfg.Width); err != nil {
		errs = append(errs, fmt.Errorf("%w: must be one of %s, got '%s'", ErrInvalidFormat, strings.Join(batch.Formats(), ", "), cfg.Format))
	}

	if cfg.Width <= 0 {
		errs = append(errs, fmt.Errorf("%w: width must be positive, got %d", ErrInvalidWidth, cfg.Width))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result still matches each input with errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return &validationError{errs: errs}
}

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
