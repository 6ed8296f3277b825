package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileDiscovery:
// - "**/" include patterns match files in the root and in subdirectories
// - Ignored directories are skipped entirely; ignored files are dropped
// - Results come back in lexical walk order
// - Match agrees with Walk, including files under ignored directories
// - Invalid patterns fail at construction
// - A missing root fails; a cancelled context stops the walk
// - Returning an error from the callback stops the walk

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		path := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
}

func TestDiscover_IncludeAndIgnore(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root,
		"book.xlsx",
		"notes.txt",
		"q1/north.ods",
		"q1/deep/south.xlsx",
		"archive/old.xlsx",
		"q1/~$lock.xlsx",
	)

	fd, err := New(root, []string{"**/*.xlsx", "**/*.ods"}, []string{"archive/**", "**/~$*"})
	require.NoError(t, err)

	files, skipped, err := fd.Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, []string{
		filepath.Join(root, "book.xlsx"),
		filepath.Join(root, "q1", "deep", "south.xlsx"),
		filepath.Join(root, "q1", "north.ods"),
	}, files)
}

func TestMatch(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fd, err := New(root, []string{"**/*.csv"}, []string{"archive/**"})
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "a.csv"), true},
		{filepath.Join(root, "sub", "a.csv"), true},
		{filepath.Join(root, "a.txt"), false},
		{filepath.Join(root, "archive", "a.csv"), false},
		{filepath.Join(root, "archive", "2020", "a.csv"), false},
		{filepath.Join(filepath.Dir(root), "elsewhere.csv"), false},
		{root, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, fd.Match(tt.path), tt.path)
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := New(t.TempDir(), []string{"[a-"}, nil)
	assert.Error(t, err)

	_, err = New(t.TempDir(), []string{"**/*.csv"}, []string{"[a-"})
	assert.Error(t, err)
}

func TestDiscover_MissingRoot(t *testing.T) {
	t.Parallel()

	fd, err := New(filepath.Join(t.TempDir(), "missing"), []string{"**/*.csv"}, nil)
	require.NoError(t, err)

	_, _, err = fd.Discover(context.Background())
	assert.Error(t, err)
}

func TestDiscover_Cancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "a.csv")

	fd, err := New(root, []string{"**/*.csv"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = fd.Discover(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalk_CallbackErrorStops(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, root, "a.csv", "b.csv", "c.csv")

	fd, err := New(root, []string{"**/*.csv"}, nil)
	require.NoError(t, err)

	stop := assert.AnError
	var seen []string
	err = fd.Walk(context.Background(), func(path string, err error) error {
		seen = append(seen, filepath.Base(path))
		if len(seen) == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []string{"a.csv", "b.csv"}, seen)
}
