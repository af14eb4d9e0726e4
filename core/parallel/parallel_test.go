package parallel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelizeCoversEveryItem(t *testing.T) {
	for _, items := range []int{0, 1, 7, 100, 1001} {
		seen := make([]int32, items)
		Parallelize(items, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, v := range seen {
			require.Equal(t, int32(1), v, "items=%d index=%d", items, i)
		}
	}
}

func TestParallelizeWithThreshold(t *testing.T) {
	var calls int32
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, int32(1), calls)
}

func TestForEachLimitsConcurrency(t *testing.T) {
	var inFlight, peak int32
	var mu sync.Mutex
	err := ForEach(context.Background(), 50, 3, func(ctx context.Context, i int) error {
		cur := atomic.AddInt32(&inFlight, 1)
		mu.Lock()
		if cur > peak {
			peak = cur
		}
		mu.Unlock()
		atomic.AddInt32(&inFlight, -1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, int32(3))
}

func TestForEachReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEach(context.Background(), 20, 2, func(ctx context.Context, i int) error {
		if i == 5 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestForEachCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32
	err := ForEach(ctx, 10, 2, func(ctx context.Context, i int) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls)
}

func TestForEachIndependent(t *testing.T) {
	boom := errors.New("row failed")
	errs := ForEachIndependent(context.Background(), 6, 4, func(ctx context.Context, i int) error {
		if i%3 == 1 {
			return boom
		}
		return nil
	})
	require.Len(t, errs, 6)
	for i, err := range errs {
		if i%3 == 1 {
			assert.ErrorIs(t, err, boom)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 4, Workers(4))
	assert.GreaterOrEqual(t, Workers(0), 1)
}
