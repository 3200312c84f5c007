package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/a/.b"))
	assert.True(t, IsHidden(".cache"))
	assert.False(t, IsHidden("plan.pdf"))
	assert.False(t, IsHidden("."))
	assert.False(t, IsHidden(".."))
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.pdf"))
	touch(t, filepath.Join(dir, "sub", "a.PDF"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, ".hidden", "c.pdf"))
	touch(t, filepath.Join(dir, ".d.pdf"))

	t.Run("walks directories and skips hidden", func(t *testing.T) {
		got, err := Collect([]string{dir}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "b.pdf"),
			filepath.Join(dir, "sub", "a.PDF"),
		}, got)
	})

	t.Run("keeps hidden when asked", func(t *testing.T) {
		got, err := Collect([]string{dir}, false)
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("files are passed through and deduplicated", func(t *testing.T) {
		txt := filepath.Join(dir, "notes.txt")
		got, err := Collect([]string{txt, filepath.Join(dir, "b.pdf"), dir, "missing.pdf"}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "b.pdf"),
			txt,
			filepath.Join(dir, "sub", "a.PDF"),
			"missing.pdf",
		}, got)
	})
}

func TestStartWatcher(t *testing.T) {
	t.Run("requires roots", func(t *testing.T) {
		_, _, err := StartWatcher(context.Background(), WatchConfig{}, nil)
		assert.Error(t, err)
	})

	t.Run("initial scan then new files", func(t *testing.T) {
		dir := t.TempDir()
		existing := filepath.Join(dir, "old.pdf")
		touch(t, existing)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true, SkipHidden: true, Debounce: 50 * time.Millisecond}, nil)
		require.NoError(t, err)

		select {
		case p := <-events:
			assert.Equal(t, existing, p)
		case <-time.After(2 * time.Second):
			t.Fatal("initial scan event not received")
		}

		created := filepath.Join(dir, "new.pdf")
		touch(t, filepath.Join(dir, "ignored.txt"))
		touch(t, created)
		select {
		case p := <-events:
			assert.Equal(t, created, p)
		case <-time.After(3 * time.Second):
			t.Fatal("create event not received")
		}

		cancel()
		for range events {
		}
	})
}
