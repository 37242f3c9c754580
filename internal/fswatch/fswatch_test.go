package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DeliversSettledChangeOnce(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "settings.yaml")
	other := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(target, []byte("a: 1\n"), 0o644))

	changed := make(chan string, 8)
	w, err := New([]string{target}, 50*time.Millisecond, func(path string) { changed <- path })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(target, []byte("a: 2\n"), 0o644))
	}

	select {
	case got := <-changed:
		want, _ := filepath.Abs(target)
		assert.Equal(t, want, got)
	case <-time.After(3 * time.Second):
		t.Fatal("no change delivered")
	}

	select {
	case got := <-changed:
		t.Fatalf("unexpected second delivery for %s", got)
	case <-time.After(200 * time.Millisecond):
	}

	assert.GreaterOrEqual(t, w.Stats().Modified+w.Stats().Created, 1)
}

func TestNew_RequiresPaths(t *testing.T) {
	_, err := New(nil, 0, nil)
	assert.Error(t, err)
}

func TestStop_WithoutStart(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "f")}, 0, nil)
	require.NoError(t, err)
	w.Stop()
}
