package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string, run RunFunc) {
	t.Helper()
	w, err := New(path, 50*time.Millisecond, run, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	// Give fsnotify time to register the directory watch.
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.jar")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	var runs atomic.Int32
	startWatcher(t, path, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	for _, content := range []string{"v2-a", "v2-b", "v2"} {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestWatcher_IgnoresUnchangedContentAndOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.jar")
	require.NoError(t, os.WriteFile(path, []byte("same"), 0o644))

	var runs atomic.Int32
	startWatcher(t, path, func(context.Context) error {
		runs.Add(1)
		return errors.New("run errors are logged, not fatal")
	})

	require.NoError(t, os.WriteFile(path, []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.jar"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o644))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
}

func TestNew_RequiresRunFunc(t *testing.T) {
	_, err := New("app.jar", 0, nil, nil)
	assert.Error(t, err)
}
