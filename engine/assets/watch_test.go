package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestPendingFilesCoalesces(t *testing.T) {
	p := newPendingFiles()
	assert.True(t, p.add("a"))
	assert.True(t, p.add("b"))
	assert.True(t, p.add("a"))

	var got []string
	p.drain(func(path string) { got = append(got, path) })
	assert.Equal(t, []string{"a", "b"}, got)

	for i := 0; i < maxPendingFiles; i++ {
		require.True(t, p.add(fmt.Sprintf("file%d.png", i)))
	}
	assert.False(t, p.add("overflow"))
}

func TestWatchRebakesChangedFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "assets")
	require.NoError(t, os.MkdirAll(root, 0o755))
	b := newBaker(t, root, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Watch(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// give the watcher time to register the tree
	time.Sleep(100 * time.Millisecond)

	src := filepath.Join(root, "nested", "moss_diff.png")
	writePNG(t, src, 2, 2)
	baked := filepath.Join(b.ExportDir(), "nested", "moss_diff.tx")
	require.Eventually(t, func() bool { return exists(baked) }, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, os.Remove(src))
	require.Eventually(t, func() bool { return !exists(baked) }, 5*time.Second, 50*time.Millisecond)
}
