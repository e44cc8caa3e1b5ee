package ingest

import (
	"context"
	"sync"
	"time"
)

// itemStatus classifies the handling of one crawl item.
type itemStatus string

const (
	itemOK      itemStatus = "ok"
	itemSkipped itemStatus = "skipped"
	itemFailed  itemStatus = "failed"
)

// itemResult is the structured outcome of one pool item.
type itemResult struct {
	ID     string
	Status itemStatus
	Err    error
}

// runPool feeds ids to a fixed set of workers and collects structured
// results. The concurrency ceiling and the fixed delay after each handled
// item are anti-detection measures, not performance tuning; keep them low
// and present. The pool drains early when the context is canceled but
// never abandons a worker mid-item.
func runPool(
	ctx context.Context,
	ids []string,
	concurrency int,
	interItemDelay time.Duration,
	sleep func(ctx context.Context, d time.Duration),
	handle func(ctx context.Context, id string) itemResult,
) []itemResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(ids) {
		concurrency = len(ids)
	}
	if len(ids) == 0 {
		return nil
	}

	work := make(chan string)
	results := make(chan itemResult, len(ids))

	var wg sync.WaitGroup
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				results <- handle(ctx, id)
				sleep(ctx, interItemDelay)
			}
		}()
	}

feedLoop:
	for _, id := range ids {
		select {
		case work <- id:
		case <-ctx.Done():
			break feedLoop
		}
	}
	close(work)
	wg.Wait()
	close(results)

	collected := make([]itemResult, 0, len(ids))
	for r := range results {
		collected = append(collected, r)
	}
	return collected
}

func countByStatus(results []itemResult, status itemStatus) int {
	n := 0
	for _, r := range results {
		if r.Status == status {
			n++
		}
	}
	return n
}
