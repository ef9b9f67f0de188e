package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_fires_on_write(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	changed := make(chan struct{}, 10)

	w, err := NewWatcher(path, func() { changed <- struct{}{} }, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	require.NoError(t, os.WriteFile(path, []byte("cleanup:\n  enabled: false\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for change")
	}
}

func TestWatcher_ignores_other_files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var calls atomic.Int32

	w, err := NewWatcher(filepath.Join(dir, "config.yaml"), func() { calls.Add(1) }, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644))

	time.Sleep(4 * debounceDelay)
	assert.Zero(t, calls.Load())
}

func TestWatcher_debounces_bursts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	var calls atomic.Int32

	w, err := NewWatcher(path, func() { calls.Add(1) }, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	for range 5 {
		require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: memory\n"), 0o644))
	}

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(4 * debounceDelay)
	assert.Less(t, calls.Load(), int32(5))
}

func TestWatcher_creates_directory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	w, err := NewWatcher(path, func() {}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.DirExists(t, filepath.Dir(path))
}
