package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redditanalyzer/pkg/logger"
)

func TestPoolRunsAllJobs(t *testing.T) {
	pool := NewPool(0, logger.NewNopLogger())

	var counter int32
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(Job{
			ID: "job",
			Run: func(ctx context.Context) {
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&counter, 1)
			},
		}))
	}

	abandoned, err := pool.Shutdown(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, abandoned)
	assert.Equal(t, int32(10), atomic.LoadInt32(&counter))

	stats := pool.Stats()
	assert.Equal(t, int64(10), stats.Submitted)
	assert.Equal(t, int64(10), stats.Finished)
	assert.Equal(t, int64(0), stats.Running)
}

func TestPoolRespectsConcurrencyLimit(t *testing.T) {
	pool := NewPool(2, logger.NewNopLogger())

	var current, peak int32
	for i := 0; i < 8; i++ {
		require.NoError(t, pool.Submit(Job{
			ID: "limited",
			Run: func(ctx context.Context) {
				n := atomic.AddInt32(&current, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&current, -1)
			},
		}))
	}

	_, err := pool.Shutdown(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPoolRecoversPanics(t *testing.T) {
	tl := logger.NewTestLogger()
	pool := NewPool(0, tl)

	var (
		mu        sync.Mutex
		recovered interface{}
	)
	require.NoError(t, pool.Submit(Job{
		ID:  "boom",
		Run: func(ctx context.Context) { panic("collector exploded") },
		OnPanic: func(r interface{}) {
			mu.Lock()
			recovered = r
			mu.Unlock()
		},
	}))

	var ran int32
	require.NoError(t, pool.Submit(Job{
		ID:  "after",
		Run: func(ctx context.Context) { atomic.StoreInt32(&ran, 1) },
	}))

	_, err := pool.Shutdown(context.Background())
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, "collector exploded", recovered)
	mu.Unlock()
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran), "other jobs keep running")
	assert.Equal(t, int64(1), pool.Stats().Panicked)
	assert.True(t, tl.HasMessage("Job panicked"))
}

func TestPoolPanicInHandlerIsContained(t *testing.T) {
	pool := NewPool(0, logger.NewNopLogger())

	require.NoError(t, pool.Submit(Job{
		ID:      "double",
		Run:     func(ctx context.Context) { panic("first") },
		OnPanic: func(r interface{}) { panic("second") },
	}))

	_, err := pool.Shutdown(context.Background())
	assert.NoError(t, err)
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	pool := NewPool(0, logger.NewNopLogger())
	_, err := pool.Shutdown(context.Background())
	require.NoError(t, err)

	err = pool.Submit(Job{ID: "late", Run: func(ctx context.Context) {}})
	assert.ErrorIs(t, err, ErrPoolClosed)

	assert.Error(t, NewPool(0, logger.NewNopLogger()).Submit(Job{ID: "empty"}))
}

func TestPoolShutdownTimeoutReportsAbandoned(t *testing.T) {
	pool := NewPool(1, logger.NewNopLogger())

	release := make(chan struct{})
	defer close(release)

	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(Job{
			ID: "slow",
			Run: func(ctx context.Context) {
				select {
				case <-release:
				case <-time.After(time.Second):
				}
			},
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	abandoned, err := pool.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 3, abandoned)
}

func TestPoolDropsQueuedJobOnShutdownTimeout(t *testing.T) {
	tl := logger.NewTestLogger()
	pool := NewPool(1, tl)

	started := make(chan struct{})
	require.NoError(t, pool.Submit(Job{
		ID: "holder",
		Run: func(ctx context.Context) {
			close(started)
			<-ctx.Done()
		},
	}))
	<-started

	var ran, dropped atomic.Bool
	require.NoError(t, pool.Submit(Job{
		ID:     "queued",
		Run:    func(ctx context.Context) { ran.Store(true) },
		OnDrop: func() { dropped.Store(true) },
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	abandoned, err := pool.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, abandoned)

	require.Eventually(t, dropped.Load, time.Second, 5*time.Millisecond)
	assert.False(t, ran.Load())
	assert.True(t, tl.HasMessage("Job dropped before start"))
}
