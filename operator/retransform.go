package operator

import (
	"context"
	"sync"

	"github.com/flowbase/streamset"
)

// RetransformAll re-runs fn for every key currently known to the
// operator whenever trigger emits, regardless of whether the source item
// itself changed. Concurrency controls how many keys are recomputed at
// once (via streamset.GoBounded); results are emitted as Updates even
// when the freshly computed value compares equal to the old one, since
// the point of a forced retransform is "the world outside this value
// changed", not "this value changed".
func RetransformAll[K comparable, T, U any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], fn TransformFunc[K, T, U], trigger streamset.Observable[struct{}], concurrency int) streamset.Observable[*streamset.ChangeSet[K, U]] {
	return retransform(upstream, fn, concurrency, func(all map[K]T, _ struct{}) []K {
		keys := make([]K, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		return keys
	}, trigger)
}

// RetransformSelected is RetransformAll's counterpart for a trigger that
// names exactly which keys to recompute; keys no longer present upstream
// are silently ignored.
func RetransformSelected[K comparable, T, U any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], fn TransformFunc[K, T, U], trigger streamset.Observable[[]K], concurrency int) streamset.Observable[*streamset.ChangeSet[K, U]] {
	return retransform(upstream, fn, concurrency, func(all map[K]T, selected []K) []K {
		out := make([]K, 0, len(selected))
		for _, k := range selected {
			if _, ok := all[k]; ok {
				out = append(out, k)
			}
		}
		return out
	}, trigger)
}

func retransform[K comparable, T, U, Trig any](
	upstream streamset.Observable[*streamset.ChangeSet[K, T]],
	fn TransformFunc[K, T, U],
	concurrency int,
	selectKeys func(all map[K]T, trig Trig) []K,
	trigger streamset.Observable[Trig],
) streamset.Observable[*streamset.ChangeSet[K, U]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K, U]](func(observer streamset.Observer[*streamset.ChangeSet[K, U]]) streamset.Subscription {
		var mu sync.Mutex
		values := make(map[K]T)
		transformed := make(map[K]U) // last value emitted per key, the next Update's Previous

		sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				mu.Lock()
				for _, c := range cs.Changes {
					switch c.Reason {
					case streamset.Add, streamset.Update, streamset.Refresh:
						values[c.Key] = c.Current
					case streamset.Remove:
						delete(values, c.Key)
						delete(transformed, c.Key)
					}
				}
				mu.Unlock()
			},
			Err:       observer.OnError,
			Completed: observer.OnCompleted,
		})

		triggerSub := trigger.Subscribe(streamset.ObserverFunc[Trig]{
			Next: func(trig Trig) {
				mu.Lock()
				snapshot := make(map[K]T, len(values))
				for k, v := range values {
					snapshot[k] = v
				}
				keys := selectKeys(snapshot, trig)
				mu.Unlock()
				if len(keys) == 0 {
					return
				}

				fns := make([]func(context.Context) (U, error), len(keys))
				for i, k := range keys {
					k := k
					fns[i] = func(ctx context.Context) (U, error) { return fn(k, snapshot[k]) }
				}
				limit := concurrency
				if limit <= 0 {
					limit = len(fns)
				}
				deferreds := streamset.GoBounded(context.Background(), limit, fns)

				out := streamset.NewChangeSet[K, U]()
				var outMu sync.Mutex
				remaining := len(deferreds)
				done := make(chan struct{})
				for i, d := range deferreds {
					i, d := i, d
					d.OnComplete(func(u U, err error) {
						outMu.Lock()
						if err == nil {
							mu.Lock()
							prev := transformed[keys[i]]
							transformed[keys[i]] = u
							mu.Unlock()
							out.Append(streamset.NewUpdateChange(keys[i], prev, u))
						}
						remaining--
						finished := remaining == 0
						outMu.Unlock()
						if finished {
							close(done)
						}
					})
				}
				<-done
				if !out.Empty() {
					observer.OnNext(out)
				}
			},
		})

		return subscriptionFunc(func() {
			sub.Dispose()
			triggerSub.Dispose()
		})
	})
}
