// Package discovery walks a directory tree and selects files by glob
// include and ignore patterns.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
	// root matches files directly under the root for "**/" patterns,
	// which the glob itself requires a separator for.
	root glob.Glob
}

// FileError is a per-file failure that did not stop the walk.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// WalkFunc is called for each matching file in lexical order. err is non-nil
// when an entry below the root could not be read; returning nil skips it.
// Returning a non-nil error stops the walk.
type WalkFunc func(path string, err error) error

// FileDiscovery handles file discovery with glob patterns and ignore rules.
type FileDiscovery struct {
	rootDir         string
	includePatterns []compiledPattern
	ignorePatterns  []compiledPattern
}

// New creates a discovery instance. Patterns are matched against
// slash-separated paths relative to rootDir.
func New(rootDir string, include, ignore []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{
		rootDir: rootDir,
	}

	var err error
	if fd.includePatterns, err = compileAll(include); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compileAll(ignore); err != nil {
		return nil, err
	}

	return fd, nil
}

func compileAll(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		cp := compiledPattern{pattern: pattern, glob: g}
		if simplified, ok := strings.CutPrefix(pattern, "**/"); ok {
			if rg, err := glob.Compile(simplified, '/'); err == nil {
				cp.root = rg
			}
		}
		compiled = append(compiled, cp)
	}
	return compiled, nil
}

// Walk visits every file under the root that matches an include pattern and
// no ignore pattern. Ignored directories are not descended into. A failure to
// read the root itself is returned; failures below it go to fn.
func (fd *FileDiscovery) Walk(ctx context.Context, fn WalkFunc) error {
	return filepath.WalkDir(fd.rootDir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == fd.rootDir {
				return err
			}
			if cbErr := fn(path, err); cbErr != nil {
				return cbErr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Get relative path for pattern matching
		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		// Normalize path separators for glob matching
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if fd.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if fd.shouldIgnore(relPath) || !matchesAnyPattern(relPath, fd.includePatterns) {
			return nil
		}
		return fn(path, nil)
	})
}

// Discover returns all matching files. Unreadable entries are returned as
// FileErrors alongside the files that were found.
func (fd *FileDiscovery) Discover(ctx context.Context) ([]string, []*FileError, error) {
	files := []string{}
	var skipped []*FileError

	err := fd.Walk(ctx, func(path string, err error) error {
		if err != nil {
			skipped = append(skipped, &FileError{Path: path, Err: err})
			return nil
		}
		files = append(files, path)
		return nil
	})

	return files, skipped, err
}

// Match reports whether file, a path under the root, would be selected by
// Walk. A file inside an ignored directory does not match.
func (fd *FileDiscovery) Match(file string) bool {
	relPath, err := filepath.Rel(fd.rootDir, file)
	if err != nil || relPath == "." || strings.HasPrefix(relPath, "..") {
		return false
	}
	relPath = filepath.ToSlash(relPath)

	for dir := path.Dir(relPath); dir != "."; dir = path.Dir(dir) {
		if fd.shouldIgnore(dir) {
			return false
		}
	}
	return !fd.shouldIgnore(relPath) && matchesAnyPattern(relPath, fd.includePatterns)
}

// shouldIgnore checks if a path matches any ignore pattern.
func (fd *FileDiscovery) shouldIgnore(relPath string) bool {
	if matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// Also check if this is a directory that would match with /** suffix
	// For example, "node_modules" should match pattern "node_modules/**"
	return matchesAnyPattern(relPath+"/**", fd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// A path in the root has no slash, so "**/*.xlsx" must also match
	// "book.xlsx" through the pattern with its "**/" prefix removed.
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if cp.root != nil && cp.root.Match(path) {
				return true
			}
		}
	}

	return false
}
