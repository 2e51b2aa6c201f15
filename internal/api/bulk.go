package api

import (
	"context"
	"sync"
)

// BulkResult aggregates a per-id batch: how many calls succeeded, how
// many failed, and the individual failures keyed by id. The batch itself
// never fails wholesale — partial success is reported, not collapsed
// into a single error.
type BulkResult struct {
	Succeeded int
	Failed    int
	Errors    map[string]error
}

// AllSettled runs fn for every id concurrently and waits for all calls
// to settle. Used when the backend only exposes per-id endpoints and a
// logical bulk operation has to fan out client-side.
func AllSettled(ctx context.Context, ids []string, fn func(ctx context.Context, id string) error) BulkResult {
	result := BulkResult{Errors: make(map[string]error)}
	if len(ids) == 0 {
		return result
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := fn(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors[id] = err
				return
			}
			result.Succeeded++
		}(id)
	}
	wg.Wait()
	return result
}
