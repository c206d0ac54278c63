package operator

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ParallelMode selects how Filter and Transform run their per-item work
// function (the predicate or the transform func) across the changes of a
// single incoming ChangeSet.
type ParallelMode int

const (
	// Ordered runs the per-item function once per change, one at a
	// time, in upstream order. This is the default when no
	// ParallelOption is given, identical to each operator's original
	// sequential behaviour.
	Ordered ParallelMode = iota
	// ParallelUnordered forks the per-item function across a bounded
	// worker pool and assembles the downstream ChangeSet in whatever
	// order each item's call happens to finish.
	ParallelUnordered
	// ParallelOrdered forks the per-item function the same way, but
	// rejoins the results back into the upstream's original order
	// before emitting the downstream ChangeSet.
	ParallelOrdered
)

// ParallelOption configures the fan-out Filter/Transform use to evaluate
// their per-item function over one ChangeSet's changes.
type ParallelOption func(*parallelConfig)

type parallelConfig struct {
	mode        ParallelMode
	concurrency int64
}

// WithParallelism selects mode and caps the number of concurrent per-item
// calls at concurrency. concurrency <= 0 means unbounded (capped only by
// the batch size). concurrency is ignored when mode is Ordered.
func WithParallelism(mode ParallelMode, concurrency int) ParallelOption {
	return func(c *parallelConfig) {
		c.mode = mode
		c.concurrency = int64(concurrency)
	}
}

func resolveParallelConfig(opts []ParallelOption) parallelConfig {
	var cfg parallelConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// runFanOut evaluates work(i) for every i in [0, n) according to cfg,
// returning the results either in call order (Ordered, ParallelOrdered)
// or in completion order (ParallelUnordered). The first error cancels the
// errgroup's derived context passed to every other call (a call stops
// early only if it watches that context) and is returned once every
// started call has finished; a caller whose per-item work has no downstream
// side effect beyond its own return value can ignore the distinction and
// simply range over the result.
func runFanOut[A any](ctx context.Context, cfg parallelConfig, n int, work func(ctx context.Context, i int) (A, error)) ([]A, error) {
	if cfg.mode == Ordered || n <= 1 {
		out := make([]A, n)
		for i := 0; i < n; i++ {
			v, err := work(ctx, i)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	limit := cfg.concurrency
	if limit <= 0 {
		limit = int64(n)
	}
	sem := semaphore.NewWeighted(limit)
	g, groupCtx := errgroup.WithContext(ctx)

	ordered := make([]A, n)
	unordered := make([]A, 0, n)
	var mu sync.Mutex

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := sem.Acquire(groupCtx, 1); err != nil {
				return err
			}
			v, err := work(groupCtx, i)
			sem.Release(1)
			if err != nil {
				return err
			}
			if cfg.mode == ParallelOrdered {
				ordered[i] = v
				return nil
			}
			mu.Lock()
			unordered = append(unordered, v)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if cfg.mode == ParallelOrdered {
		return ordered, nil
	}
	return unordered, nil
}
