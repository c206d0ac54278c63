package streamset

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Deferred is the future-shaped contract consumed by transform_async and
// by any factory method accepting an asynchronous producer: a
// value that eventually completes or is cancelled, with callback-style
// observation rather than a blocking Wait so the caller never needs to
// dedicate a goroutine per pending item.
type Deferred[T any] interface {
	// OnComplete registers fn to run when the value is ready, with the
	// result and any error. If the Deferred has already completed, fn
	// runs synchronously from the calling goroutine.
	OnComplete(fn func(T, error))
	// Cancel requests cancellation; a Deferred that has already
	// completed ignores it.
	Cancel()
}

// Go runs fn on its own goroutine and returns a Deferred that completes
// with fn's result. The context fn receives is cancelled when ctx is or
// when Cancel is called; the Deferred still completes only once fn
// returns, with whatever fn returned. It is
// the module's concrete Deferred; TransformAsync never calls it itself and
// uses whatever Deferred its AsyncTransformFunc returns.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) Deferred[T] {
	d := &goDeferred[T]{done: make(chan struct{})}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go func() {
		value, err := fn(runCtx)
		d.complete(value, err)
	}()

	return d
}

// GoBounded runs each of fns with at most limit running concurrently,
// using golang.org/x/sync/errgroup's concurrency limit, and returns one
// Deferred[T] per fn in the same order. It is the module's concrete
// Deferred source for "re-transform all/selected" triggers, where a
// single external signal can fan out recomputation across many keys at
// once and the fan-out itself needs a cap.
func GoBounded[T any](ctx context.Context, limit int, fns []func(ctx context.Context) (T, error)) []Deferred[T] {
	deferreds := make([]*goDeferred[T], len(fns))
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, fn := range fns {
		i, fn := i, fn
		runCtx, cancel := context.WithCancel(groupCtx)
		d := &goDeferred[T]{done: make(chan struct{}), cancel: cancel}
		deferreds[i] = d
		g.Go(func() error {
			value, err := fn(runCtx)
			d.complete(value, err)
			return nil
		})
	}

	out := make([]Deferred[T], len(deferreds))
	for i, d := range deferreds {
		out[i] = d
	}
	return out
}

type goDeferred[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	value     T
	err       error
	callbacks []func(T, error)
	cancel    context.CancelFunc
}

func (d *goDeferred[T]) complete(value T, err error) {
	d.mu.Lock()
	if d.completed {
		d.mu.Unlock()
		return
	}
	d.value, d.err, d.completed = value, err, true
	callbacks := d.callbacks
	d.callbacks = nil
	d.mu.Unlock()
	close(d.done)
	for _, cb := range callbacks {
		cb(value, err)
	}
}

func (d *goDeferred[T]) OnComplete(fn func(T, error)) {
	d.mu.Lock()
	if d.completed {
		value, err := d.value, d.err
		d.mu.Unlock()
		fn(value, err)
		return
	}
	d.callbacks = append(d.callbacks, fn)
	d.mu.Unlock()
}

func (d *goDeferred[T]) Cancel() {
	d.cancel()
}
