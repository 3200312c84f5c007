package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/joseph-ayodele/installments-tracker/internal/entity"
	"github.com/joseph-ayodele/installments-tracker/internal/extract"
	"github.com/joseph-ayodele/installments-tracker/internal/profile"
)

// Key identifies one extraction: the document bytes plus the options that
// change its result. Callbacks are not part of the key.
type Key struct {
	Digest      uint64
	Size        int64
	Profile     profile.ID
	MinExpected int
}

// KeyFor hashes the file at path.
func KeyFor(path string, opts extract.Options) (Key, error) {
	f, err := os.Open(path)
	if err != nil {
		return Key{}, err
	}
	defer f.Close()

	h := xxhash.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Key{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return Key{Digest: h.Sum64(), Size: n, Profile: opts.Profile, MinExpected: opts.MinExpected}, nil
}

// Extractor is the orchestrator contract the cache wraps.
type Extractor interface {
	Extract(ctx context.Context, path string, opts extract.Options) (*extract.Result, error)
}

// CachingExtractor returns the stored result when the same document is
// submitted again with the same options. Errors are never cached.
type CachingExtractor struct {
	next   Extractor
	lru    *LRU[Key, *extract.Result]
	logger *slog.Logger
}

func NewCachingExtractor(next Extractor, capacity int, logger *slog.Logger) *CachingExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingExtractor{next: next, lru: NewLRU[Key, *extract.Result](capacity), logger: logger}
}

func (c *CachingExtractor) Extract(ctx context.Context, path string, opts extract.Options) (*extract.Result, error) {
	key, err := KeyFor(path, opts)
	if err != nil {
		// unreadable input: let the orchestrator classify it
		return c.next.Extract(ctx, path, opts)
	}
	if res, ok := c.lru.Get(key); ok {
		c.logger.Debug("cache.hit", "path", path, "digest", fmt.Sprintf("%016x", key.Digest))
		return clone(res), nil
	}

	res, err := c.next.Extract(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	if res.Degraded {
		// a later run may reach OCR
		return res, nil
	}
	c.lru.Put(key, clone(res))
	return res, nil
}

func clone(r *extract.Result) *extract.Result {
	out := *r
	out.Installments = append([]entity.Installment(nil), r.Installments...)
	out.Warnings = append([]string(nil), r.Warnings...)
	return &out
}
