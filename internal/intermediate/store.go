// Package intermediate persists one record.Document per source document as
// an indented JSON file stored next to the source.
package intermediate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/mvp-joe/formulax/internal/record"
)

// DefaultPrefix marks intermediate files so that tools which walk source
// trees can skip them.
const DefaultPrefix = "_skip_"

const baseName = "formulas.json"

// ErrMalformed is returned when an intermediate file cannot be decoded into a
// record.
var ErrMalformed = errors.New("malformed intermediate file")

// ErrInvalidText is returned when a record to be written holds text that is
// not valid UTF-8.
var ErrInvalidText = errors.New("text is not valid UTF-8")

// Store reads and writes intermediate files named <prefix>formulas.json.
type Store struct {
	prefix string
}

// New creates a store using the given filename prefix.
func New(prefix string) *Store {
	return &Store{prefix: prefix}
}

// Prefix returns the filename prefix.
func (s *Store) Prefix() string {
	return s.prefix
}

// Filename returns the base name every intermediate file carries.
func (s *Store) Filename() string {
	return s.prefix + baseName
}

// PathFor returns the intermediate path for a source document.
func (s *Store) PathFor(source string) string {
	return filepath.Join(filepath.Dir(source), s.Filename())
}

// IsIntermediate reports whether path names an intermediate file.
func (s *Store) IsIntermediate(path string) bool {
	return filepath.Base(path) == s.Filename()
}

// Write stores rec next to its source document and returns the path written.
// The file is written to a temp file in the same directory and renamed into
// place, so readers never see a partial file.
func (s *Store) Write(rec *record.Document) (string, error) {
	data, err := Encode(rec)
	if err != nil {
		return "", err
	}

	finalPath := s.PathFor(rec.Filepath)
	if err := WriteFileAtomic(finalPath, data); err != nil {
		return "", err
	}
	return finalPath, nil
}

// Read loads and decodes an intermediate file.
func (s *Store) Read(path string) (*record.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open intermediate file: %w", err)
	}
	defer f.Close()

	rec, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// Encode serializes a record as indented JSON with HTML escaping disabled.
// Absent lists in rec are replaced with empty ones first, so rec compares
// equal to what Decode later returns. Text that is not valid UTF-8 fails
// with ErrInvalidText instead of being rewritten.
func Encode(rec *record.Document) ([]byte, error) {
	normalize(rec)
	if err := checkText(rec); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reconstructs a record. Unknown fields, unknown token types or scopes
// and cells whose valid flag disagrees with their payload are all rejected.
func Decode(r io.Reader) (*record.Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var rec record.Document
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if rec.Filepath == "" {
		return nil, fmt.Errorf("%w: missing filepath", ErrMalformed)
	}
	normalize(&rec)
	return &rec, nil
}

// normalize replaces absent lists with empty ones so a decoded record
// compares equal to the one that was written.
func normalize(rec *record.Document) {
	if rec.Sheets == nil {
		rec.Sheets = []string{}
	}
	if rec.Formulas == nil {
		rec.Formulas = []record.FormulaCell{}
	}
	if rec.NamedExpressions == nil {
		rec.NamedExpressions = []record.NamedExpression{}
	}
	for i := range rec.Formulas {
		if v, ok := rec.Formulas[i].Result.(record.ValidFormula); ok && v.Tokens == nil {
			rec.Formulas[i].Result = record.Valid(nil)
		}
	}
	for i := range rec.NamedExpressions {
		if rec.NamedExpressions[i].Tokens == nil {
			rec.NamedExpressions[i].Tokens = []record.Token{}
		}
	}
}

// checkText reports the first string in rec that is not valid UTF-8.
func checkText(rec *record.Document) error {
	bad := func(field, s string) error {
		if utf8.ValidString(s) {
			return nil
		}
		return fmt.Errorf("%w: %s %q", ErrInvalidText, field, s)
	}
	checkTokens := func(field string, tokens []record.Token) error {
		for _, tok := range tokens {
			if err := bad(field+" token", tok.Text); err != nil {
				return err
			}
		}
		return nil
	}

	if err := bad("filepath", rec.Filepath); err != nil {
		return err
	}
	for _, s := range rec.Sheets {
		if err := bad("sheet", s); err != nil {
			return err
		}
	}
	for _, f := range rec.Formulas {
		if err := bad("sheet", f.Sheet); err != nil {
			return err
		}
		if err := bad("formula", f.Formula); err != nil {
			return err
		}
		if err := bad("formula error", f.ErrorText()); err != nil {
			return err
		}
		if err := checkTokens("formula", f.Tokens()); err != nil {
			return err
		}
	}
	for _, ne := range rec.NamedExpressions {
		for field, s := range map[string]string{"name": ne.Name, "named formula": ne.Formula, "name sheet": ne.Sheet} {
			if err := bad(field, s); err != nil {
				return err
			}
		}
		if err := checkTokens("named expression", ne.Tokens); err != nil {
			return err
		}
	}
	return nil
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory followed by a rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	// Rename to final location (atomic operation)
	if err := os.Rename(tempPath, path); err != nil {
		// Clean up temp file on error
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
