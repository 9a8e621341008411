package commands

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incawqmodels/persist/internal/testutil"
)

func TestWatchFiles_DebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "parameters.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(watched, []byte("a"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFiles(ctx, testutil.NewTestLogger(t), []string{watched}, 50*time.Millisecond, func() {
			calls.Add(1)
		})
	}()

	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0600))
	for i := range 3 {
		require.NoError(t, os.WriteFile(watched, []byte{byte('b' + i)}, 0600))
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watchFiles did not return after cancel")
	}
}

func TestWatchFiles_MissingDirectory(t *testing.T) {
	err := watchFiles(context.Background(), testutil.NewTestLogger(t),
		[]string{filepath.Join(t.TempDir(), "missing", "driving.csv")}, time.Millisecond, func() {})
	require.Error(t, err)
}
