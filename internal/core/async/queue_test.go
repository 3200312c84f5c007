package async

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/installments-tracker/internal/common"
	"github.com/joseph-ayodele/installments-tracker/internal/entity"
	"github.com/joseph-ayodele/installments-tracker/internal/extract"
)

type stubExtractor struct {
	calls  atomic.Int32
	runIDs chan string
}

func (s *stubExtractor) Extract(ctx context.Context, path string, _ extract.Options) (*extract.Result, error) {
	s.calls.Add(1)
	if s.runIDs != nil {
		s.runIDs <- common.RunIDFromContext(ctx)
	}
	switch path {
	case "bad.pdf":
		return nil, errors.New("ocr exploded")
	case "locked.pdf":
		return nil, common.InputError(common.ErrEncryptedDocument, path, nil)
	}
	return &extract.Result{Installments: []entity.Installment{{Seq: 1}}}, nil
}

func collect(q *ExtractQueue) []Outcome {
	var out []Outcome
	for o := range q.Results() {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job.Index < out[j].Job.Index })
	return out
}

func TestExtractQueue(t *testing.T) {
	t.Run("every job yields one outcome", func(t *testing.T) {
		ex := &stubExtractor{}
		q := NewExtractQueue(context.Background(), ex, nil, WithWorkers(3), WithQueueSize(1))

		paths := []string{"a.pdf", "bad.pdf", "c.pdf", "locked.pdf", "e.pdf"}
		go func() {
			for i, p := range paths {
				assert.NoError(t, q.Enqueue(context.Background(), Job{Index: i, Path: p}))
			}
			q.Shutdown(context.Background())
		}()

		out := collect(q)
		require.Len(t, out, len(paths))
		for i, o := range out {
			assert.Equal(t, paths[i], o.Job.Path)
		}
		assert.Error(t, out[1].Err)
		assert.False(t, out[1].Rejected)
		assert.ErrorIs(t, out[3].Err, common.ErrEncryptedDocument)
		assert.True(t, out[3].Rejected)
		assert.NoError(t, out[0].Err)
		assert.False(t, out[0].Rejected)
		assert.Len(t, out[0].Result.Installments, 1)
		assert.Equal(t, int32(5), ex.calls.Load())
	})

	t.Run("run id reaches the extractor", func(t *testing.T) {
		ex := &stubExtractor{runIDs: make(chan string, 1)}
		q := NewExtractQueue(context.Background(), ex, nil, WithWorkers(1))
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: "a.pdf", RunID: "run-1"}))
		q.Shutdown(context.Background())
		collect(q)
		assert.Equal(t, "run-1", <-ex.runIDs)
	})

	t.Run("enqueue after shutdown", func(t *testing.T) {
		q := NewExtractQueue(context.Background(), &stubExtractor{}, nil)
		q.Shutdown(context.Background())
		assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "a.pdf"}), ErrQueueClosed)
		assert.Empty(t, collect(q))
	})

	t.Run("timeout applies per job", func(t *testing.T) {
		q := NewExtractQueue(context.Background(), deadlineExtractor{}, nil, WithProcessTimeout(time.Millisecond))
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.pdf"}))
		q.Shutdown(context.Background())
		out := collect(q)
		require.Len(t, out, 1)
		assert.ErrorIs(t, out[0].Err, context.DeadlineExceeded)
	})
}

type deadlineExtractor struct{}

func (deadlineExtractor) Extract(ctx context.Context, _ string, _ extract.Options) (*extract.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
