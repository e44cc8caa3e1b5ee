package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noSleep(ctx context.Context, d time.Duration) {}

func TestRunPoolHandlesEveryItem(t *testing.T) {
	t.Parallel()

	ids := []string{"a", "b", "c", "d", "e"}
	var mu sync.Mutex
	seen := map[string]int{}

	results := runPool(context.Background(), ids, 2, 0, noSleep,
		func(ctx context.Context, id string) itemResult {
			mu.Lock()
			seen[id]++
			mu.Unlock()
			return itemResult{ID: id, Status: itemOK}
		})

	require.Len(t, results, len(ids))
	for _, id := range ids {
		require.Equal(t, 1, seen[id], "each id handled exactly once")
	}
}

func TestRunPoolRespectsConcurrencyCeiling(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("m-%d", i)
	}

	runPool(context.Background(), ids, 2, 0, noSleep,
		func(ctx context.Context, id string) itemResult {
			n := inFlight.Add(1)
			for {
				cur := peak.Load()
				if n <= cur || peak.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return itemResult{ID: id, Status: itemOK}
		})

	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunPoolSleepsAfterEveryItem(t *testing.T) {
	t.Parallel()

	var slept atomic.Int32
	ids := []string{"a", "b", "c"}

	runPool(context.Background(), ids, 1, 250*time.Millisecond,
		func(ctx context.Context, d time.Duration) {
			require.Equal(t, 250*time.Millisecond, d)
			slept.Add(1)
		},
		func(ctx context.Context, id string) itemResult {
			return itemResult{ID: id, Status: itemOK}
		})

	require.Equal(t, int32(len(ids)), slept.Load())
}

func TestRunPoolStopsFeedingOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("m-%d", i)
	}

	var handled atomic.Int32
	results := runPool(ctx, ids, 1, 0, noSleep,
		func(ctx context.Context, id string) itemResult {
			if handled.Add(1) == 3 {
				cancel()
			}
			return itemResult{ID: id, Status: itemOK}
		})

	require.Less(t, len(results), len(ids))
	require.GreaterOrEqual(t, len(results), 3)
}

func TestRunPoolEmptyInput(t *testing.T) {
	t.Parallel()

	results := runPool(context.Background(), nil, 2, 0, noSleep,
		func(ctx context.Context, id string) itemResult {
			t.Fatal("handler must not run")
			return itemResult{}
		})
	require.Empty(t, results)
}

func TestCountByStatus(t *testing.T) {
	t.Parallel()

	results := []itemResult{
		{ID: "a", Status: itemOK},
		{ID: "b", Status: itemFailed},
		{ID: "c", Status: itemSkipped},
		{ID: "d", Status: itemFailed},
	}
	require.Equal(t, 2, countByStatus(results, itemFailed))
	require.Equal(t, 1, countByStatus(results, itemOK))
}
