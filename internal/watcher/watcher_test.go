package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Watcher:
// - New fails for a missing root
// - A single file change fires the callback after the debounce
// - Rapid changes to several files arrive in one sorted, de-duplicated batch
// - Extensions are matched without regard to case; others are ignored
// - Skip drops paths such as intermediate files
// - Files in directories created after Start are reported
// - Removing a watched file is reported
// - A second Start fails; Stop is idempotent, safe concurrently and before Start
// - Context cancellation ends the watch loop

// collector gathers callback deliveries for assertions.
type collector struct {
	mu      sync.Mutex
	batches [][]string
	ch      chan struct{}
}

func newCollector() *collector {
	return &collector{ch: make(chan struct{}, 16)}
}

func (c *collector) callback(files []string) {
	c.mu.Lock()
	c.batches = append(c.batches, files)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *collector) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(3 * time.Second):
		t.Fatal("callback not called after timeout")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches[len(c.batches)-1]
}

func (c *collector) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case <-c.ch:
		t.Fatal("unexpected callback")
	case <-time.After(d):
	}
}

func startWatcher(t *testing.T, cfg Config) (*Watcher, *collector) {
	t.Helper()
	if cfg.Debounce == 0 {
		cfg.Debounce = 150 * time.Millisecond
	}
	w, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	c := newCollector()
	require.NoError(t, w.Start(context.Background(), c.callback))
	// Wait for watcher to initialize
	time.Sleep(100 * time.Millisecond)
	return w, c
}

func TestNew_InvalidRoot(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: filepath.Join(t.TempDir(), "missing"), Extensions: []string{".csv"}})
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestWatcher_SingleChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, c := startWatcher(t, Config{Root: dir, Extensions: []string{".csv"}})

	file := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(file, []byte("=1"), 0644))

	assert.Equal(t, []string{file}, c.wait(t))
}

func TestWatcher_BatchesSortedAndDeduplicated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, c := startWatcher(t, Config{Root: dir, Extensions: []string{".csv"}, Debounce: 300 * time.Millisecond})

	b := filepath.Join(dir, "b.csv")
	a := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(b, []byte("=1"), 0644))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(a, []byte("=1"), 0644))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(b, []byte("=2"), 0644))

	assert.Equal(t, []string{a, b}, c.wait(t))
	c.expectNone(t, 500*time.Millisecond)
}

func TestWatcher_ExtensionFiltering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, c := startWatcher(t, Config{Root: dir, Extensions: []string{".xlsx"}})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	upper := filepath.Join(dir, "BOOK.XLSX")
	require.NoError(t, os.WriteFile(upper, []byte("x"), 0644))

	assert.Equal(t, []string{upper}, c.wait(t))
}

func TestWatcher_Skip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, c := startWatcher(t, Config{
		Root:       dir,
		Extensions: []string{".csv"},
		Skip:       func(p string) bool { return strings.HasPrefix(filepath.Base(p), "_skip_") },
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "_skip_x.csv"), []byte("x"), 0644))
	c.expectNone(t, 500*time.Millisecond)

	file := filepath.Join(dir, "y.csv")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	assert.Equal(t, []string{file}, c.wait(t))
}

func TestWatcher_NewDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, c := startWatcher(t, Config{Root: dir, Extensions: []string{".ods"}})

	sub := filepath.Join(dir, "q1", "north")
	require.NoError(t, os.MkdirAll(sub, 0755))
	// Give the watcher time to add the new directories
	time.Sleep(200 * time.Millisecond)

	file := filepath.Join(sub, "book.ods")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	assert.Contains(t, c.wait(t), file)
}

func TestWatcher_Remove(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(file, []byte("=1"), 0644))

	_, c := startWatcher(t, Config{Root: dir, Extensions: []string{".csv"}})
	require.NoError(t, os.Remove(file))

	assert.Equal(t, []string{file}, c.wait(t))
}

func TestWatcher_StartStop(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := New(Config{Root: dir, Extensions: []string{".csv"}})
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background(), func([]string) {}))
	assert.ErrorIs(t, w.Start(context.Background(), func([]string) {}), ErrAlreadyStarted)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Stop()
		}()
	}
	wg.Wait()

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("watch loop did not exit")
	}
}

func TestWatcher_StopBeforeStart(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir(), Extensions: []string{".csv"}})
	require.NoError(t, err)

	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
	assert.ErrorIs(t, w.Start(context.Background(), func([]string) {}), ErrAlreadyStarted)
	<-w.Done()
}

func TestWatcher_ContextCancellation(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir(), Extensions: []string{".csv"}})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, func([]string) {}))
	cancel()

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("watch loop did not exit after cancellation")
	}
}
