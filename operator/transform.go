package operator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/internal/corelog"
)

// TransformFunc maps an upstream value to a downstream value.
type TransformFunc[K comparable, T, U any] func(key K, value T) (U, error)

// Transform maps every Add/Update/Refresh's Current (and Update's
// Previous) through fn, re-running fn for a key on every Update/Refresh
// so the downstream always reflects the latest upstream value. A panic
// or error from fn is wrapped as a streamset.TransformError and
// propagated as OnError to all downstream subscribers.
//
// opts optionally selects a ParallelMode for running fn across one
// ChangeSet's changes (see WithParallelism); the default, Ordered,
// matches Transform's original sequential behaviour. Each change's own
// fn call(s) are independent of every other change in the same
// ChangeSet, so they may run concurrently without affecting the result,
// only the order downstream receives them in.
func Transform[K comparable, T, U any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], fn TransformFunc[K, T, U], opts ...ParallelOption) streamset.Observable[*streamset.ChangeSet[K, U]] {
	safe := func(key K, value T) (out U, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &streamset.TransformError[K]{Key: key, Err: panicToError(r)}
			}
		}()
		return fn(key, value)
	}
	cfg := resolveParallelConfig(opts)

	return subscribeUpstream[*streamset.ChangeSet[K, T], *streamset.ChangeSet[K, U]](
		upstream,
		func(cs *streamset.ChangeSet[K, T], emit func(*streamset.ChangeSet[K, U])) error {
			changes, err := runFanOut(context.Background(), cfg, len(cs.Changes), func(_ context.Context, i int) (streamset.Change[K, U], error) {
				return transformOne(cs.Changes[i], safe)
			})
			if err != nil {
				return err
			}
			out := streamset.NewChangeSet[K, U]()
			for _, c := range changes {
				out.Append(c)
			}
			if !out.Empty() {
				emit(out)
			}
			return nil
		},
		nil,
		nil,
	)
}

func transformOne[K comparable, T, U any](c streamset.Change[K, T], fn func(K, T) (U, error)) (streamset.Change[K, U], error) {
	switch c.Reason {
	case streamset.Add:
		u, err := fn(c.Key, c.Current)
		if err != nil {
			return streamset.Change[K, U]{}, err
		}
		return streamset.NewAddChange[K, U](c.Key, u), nil
	case streamset.Update:
		u, err := fn(c.Key, c.Current)
		if err != nil {
			return streamset.Change[K, U]{}, err
		}
		prev, err := fn(c.Key, c.Previous)
		if err != nil {
			return streamset.Change[K, U]{}, err
		}
		return streamset.NewUpdateChange(c.Key, prev, u), nil
	case streamset.Refresh:
		u, err := fn(c.Key, c.Current)
		if err != nil {
			return streamset.Change[K, U]{}, err
		}
		return streamset.NewRefreshChange[K, U](c.Key, u), nil
	case streamset.Remove:
		u, err := fn(c.Key, c.Current)
		if err != nil {
			return streamset.Change[K, U]{}, err
		}
		return streamset.NewRemoveChange(c.Key, u), nil
	default:
		return streamset.Change[K, U]{}, nil
	}
}

// TransformSafe behaves like Transform, except a per-item error is routed
// to errSink instead of terminating the stream, and the offending key is
// treated as a Remove if it was already present downstream, never added
// otherwise. Unlike Transform, a successful Update or Refresh of a key
// already present downstream is emitted as a Refresh carrying only the new
// value (no Previous), and one for a key not present downstream as an Add.
func TransformSafe[K comparable, T, U any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], fn TransformFunc[K, T, U], errSink func(error)) streamset.Observable[*streamset.ChangeSet[K, U]] {
	present := make(map[K]bool)
	safe := func(key K, value T) (out U, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &streamset.TransformError[K]{Key: key, Err: panicToError(r)}
			}
		}()
		return fn(key, value)
	}

	return subscribeUpstream[*streamset.ChangeSet[K, T], *streamset.ChangeSet[K, U]](
		upstream,
		func(cs *streamset.ChangeSet[K, T], emit func(*streamset.ChangeSet[K, U])) error {
			out := streamset.NewChangeSet[K, U]()
			for _, c := range cs.Changes {
				switch c.Reason {
				case streamset.Add:
					u, err := safe(c.Key, c.Current)
					if err != nil {
						if errSink != nil {
							errSink(err)
						}
						continue
					}
					present[c.Key] = true
					out.Append(streamset.NewAddChange[K, U](c.Key, u))
				case streamset.Update, streamset.Refresh:
					u, err := safe(c.Key, c.Current)
					if err != nil {
						if errSink != nil {
							errSink(err)
						}
						if present[c.Key] {
							delete(present, c.Key)
							var zero U
							out.Append(streamset.NewRemoveChange(c.Key, zero))
						}
						continue
					}
					if present[c.Key] {
						out.Append(streamset.NewRefreshChange[K, U](c.Key, u))
					} else {
						present[c.Key] = true
						out.Append(streamset.NewAddChange[K, U](c.Key, u))
					}
				case streamset.Remove:
					if present[c.Key] {
						delete(present, c.Key)
						u, err := safe(c.Key, c.Current)
						if err != nil {
							var zero U
							u = zero
						}
						out.Append(streamset.NewRemoveChange(c.Key, u))
					}
				}
			}
			if !out.Empty() {
				emit(out)
			}
			return nil
		},
		nil,
		nil,
	)
}

// AsyncTransformFunc produces a Deferred[U] for a key/value pair, e.g.
// streamset.Go(ctx, func(ctx context.Context) (U, error) { ... }).
type AsyncTransformFunc[K comparable, T, U any] func(ctx context.Context, key K, value T) streamset.Deferred[U]

// TransformAsync computes U asynchronously via fn; completions for the
// same key are applied in enqueue order even if the underlying Deferred
// values complete out of order, by queueing each key's pending completion
// behind the previous one. Disposing the returned subscription cancels
// every outstanding Deferred for this operator instance.
type asyncItem[U any] struct {
	deferred streamset.Deferred[U]
	onDone   func(U, error)
}

func TransformAsync[K comparable, T, U any](ctx context.Context, upstream streamset.Observable[*streamset.ChangeSet[K, T]], fn AsyncTransformFunc[K, T, U]) streamset.Observable[*streamset.ChangeSet[K, U]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K, U]](func(observer streamset.Observer[*streamset.ChangeSet[K, U]]) streamset.Subscription {
		var mu sync.Mutex
		pending := make(map[K][]*asyncItem[U])
		disposed := false

		var startHead func(key K)
		startHead = func(key K) {
			mu.Lock()
			queue := pending[key]
			if len(queue) == 0 {
				mu.Unlock()
				return
			}
			head := queue[0]
			mu.Unlock()
			head.deferred.OnComplete(func(u U, err error) {
				mu.Lock()
				if disposed {
					mu.Unlock()
					return
				}
				queue := pending[key]
				if len(queue) > 0 {
					queue = queue[1:]
				}
				if len(queue) == 0 {
					delete(pending, key)
				} else {
					pending[key] = queue
				}
				mu.Unlock()
				head.onDone(u, err)
				if len(queue) > 0 {
					startHead(key)
				}
			})
		}

		enqueue := func(key K, item *asyncItem[U]) {
			mu.Lock()
			queue := pending[key]
			pending[key] = append(queue, item)
			mu.Unlock()
			if len(queue) == 0 {
				startHead(key)
			}
		}

		sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				for _, c := range cs.Changes {
					c := c
					switch c.Reason {
					case streamset.Add, streamset.Update, streamset.Refresh:
						d := fn(ctx, c.Key, c.Current)
						enqueue(c.Key, &asyncItem[U]{
							deferred: d,
							onDone: func(u U, err error) {
								if err != nil {
									corelog.Warn("streamset: transform_async producer failed", zap.Error(err))
									return
								}
								out := streamset.NewChangeSet[K, U]()
								out.Append(streamset.NewRefreshChange[K, U](c.Key, u))
								observer.OnNext(out)
							},
						})
					case streamset.Remove:
						var zero U
						out := streamset.NewChangeSet[K, U]()
						out.Append(streamset.NewRemoveChange(c.Key, zero))
						observer.OnNext(out)
					}
				}
			},
			Err:       observer.OnError,
			Completed: observer.OnCompleted,
		})

		return subscriptionFunc(func() {
			mu.Lock()
			disposed = true
			for _, queue := range pending {
				for _, item := range queue {
					item.deferred.Cancel()
				}
			}
			mu.Unlock()
			sub.Dispose()
		})
	})
}
