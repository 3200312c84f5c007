package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/installments-tracker/internal/entity"
	"github.com/joseph-ayodele/installments-tracker/internal/extract"
)

func TestLRU(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	_, _ = c.Get("a")
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())

	c.Put("a", 10)
	v, _ = c.Get("a")
	assert.Equal(t, 10, v)
}

type countingExtractor struct {
	calls    int
	err      error
	degraded bool
}

func (c *countingExtractor) Extract(_ context.Context, _ string, _ extract.Options) (*extract.Result, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &extract.Result{Degraded: c.degraded, Installments: []entity.Installment{
		{Seq: 1, DueDate: "2025-01-31", Amount: decimal.NewFromInt(100)},
	}}, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCachingExtractor(t *testing.T) {
	ctx := context.Background()

	t.Run("same content hits", func(t *testing.T) {
		next := &countingExtractor{}
		c := NewCachingExtractor(next, 4, nil)
		a := writeFile(t, "a.pdf", "%PDF-1.4 same")
		b := writeFile(t, "b.pdf", "%PDF-1.4 same")

		first, err := c.Extract(ctx, a, extract.Options{})
		require.NoError(t, err)
		first.Installments[0].Seq = 99

		second, err := c.Extract(ctx, b, extract.Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, next.calls)
		assert.Equal(t, 1, second.Installments[0].Seq, "cached copy is isolated from callers")
	})

	t.Run("options are part of the key", func(t *testing.T) {
		next := &countingExtractor{}
		c := NewCachingExtractor(next, 4, nil)
		path := writeFile(t, "a.pdf", "%PDF-1.4")

		_, err := c.Extract(ctx, path, extract.Options{MinExpected: 10})
		require.NoError(t, err)
		_, err = c.Extract(ctx, path, extract.Options{MinExpected: 5})
		require.NoError(t, err)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		next := &countingExtractor{err: errors.New("boom")}
		c := NewCachingExtractor(next, 4, nil)
		path := writeFile(t, "a.pdf", "%PDF-1.4")

		_, err := c.Extract(ctx, path, extract.Options{})
		assert.Error(t, err)
		_, err = c.Extract(ctx, path, extract.Options{})
		assert.Error(t, err)
		assert.Equal(t, 2, next.calls)
	})

	t.Run("degraded results are not cached", func(t *testing.T) {
		next := &countingExtractor{degraded: true}
		c := NewCachingExtractor(next, 4, nil)
		path := writeFile(t, "partial.pdf", "%PDF-1.4 partial")

		for range 2 {
			res, err := c.Extract(ctx, path, extract.Options{})
			require.NoError(t, err)
			assert.True(t, res.Degraded)
		}
		assert.Equal(t, 2, next.calls)
	})

	t.Run("missing file passes through", func(t *testing.T) {
		next := &countingExtractor{}
		c := NewCachingExtractor(next, 4, nil)
		_, err := c.Extract(ctx, filepath.Join(t.TempDir(), "nope.pdf"), extract.Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, next.calls)
	})
}
