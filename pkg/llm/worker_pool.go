package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig bounds concurrent model calls.
type WorkerPoolConfig struct {
	MaxConcurrent int
}

// DefaultWorkerPoolConfig allows 4 outstanding calls.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{MaxConcurrent: 4}
}

// WorkerPool fans per-type schema enrichment requests out over a bounded
// set of workers so a large schema does not open one model call per type
// at once.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 4
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("llm-worker-pool"),
	}
}

// WorkItem is one unit of work; ID identifies it in results and logs.
type WorkItem[T any] struct {
	ID      string
	Execute func(ctx context.Context) (T, error)
}

// WorkResult pairs a work item's ID with its outcome.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process runs every item and returns all results in completion order.
// Failures do not stop the batch; a cancelled context fails the items
// that have not started yet. onProgress, when set, is called after each
// completion with (completed, total).
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	workers := pool.config.MaxConcurrent
	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan WorkItem[T])
	out := make(chan WorkResult[T], len(items))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				if err := ctx.Err(); err != nil {
					var zero T
					out <- WorkResult[T]{ID: item.ID, Result: zero, Err: err}
					continue
				}
				result, err := item.Execute(ctx)
				out <- WorkResult[T]{ID: item.ID, Result: result, Err: err}
			}
		}()
	}

	go func() {
		for _, item := range items {
			jobs <- item
		}
		close(jobs)
		wg.Wait()
		close(out)
	}()

	results := make([]WorkResult[T], 0, len(items))
	for result := range out {
		results = append(results, result)
		if onProgress != nil {
			onProgress(len(results), len(items))
		}
	}
	return results
}
