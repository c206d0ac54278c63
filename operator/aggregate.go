package operator

import (
	"sync"

	"github.com/flowbase/streamset"
)

// QueryWhenChanged re-emits the collection's full current snapshot (a
// plain map, not a ChangeSet) after every upstream ChangeSet, including
// the initial one delivered on subscribe. It trades per-item fidelity for
// a simple "give me the whole picture whenever something moved" contract,
// useful for consumers that recompute a derived value from scratch rather
// than applying deltas.
func QueryWhenChanged[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]]) streamset.Observable[map[K]T] {
	return streamset.ObservableFunc[map[K]T](func(observer streamset.Observer[map[K]T]) streamset.Subscription {
		var mu sync.Mutex
		snapshot := make(map[K]T)

		sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				mu.Lock()
				for _, c := range cs.Changes {
					switch c.Reason {
					case streamset.Add, streamset.Update, streamset.Refresh:
						snapshot[c.Key] = c.Current
					case streamset.Remove:
						delete(snapshot, c.Key)
					}
				}
				out := make(map[K]T, len(snapshot))
				for k, v := range snapshot {
					out[k] = v
				}
				mu.Unlock()
				observer.OnNext(out)
			},
			Err:       observer.OnError,
			Completed: observer.OnCompleted,
		})

		return subscriptionFunc(sub.Dispose)
	})
}

// ValueSelector extracts the value DistinctValues tracks membership of.
type ValueSelector[K comparable, T any, V comparable] func(key K, value T) V

// DistinctValues tracks how many currently-present upstream items map to
// each distinct V, emitting an outer Add the first time a value appears
// and an outer Remove once its last holder leaves (or is re-mapped to a
// different value by an Update). Items sharing the same V do not produce
// duplicate outer entries.
func DistinctValues[K comparable, T any, V comparable](upstream streamset.Observable[*streamset.ChangeSet[K, T]], selector ValueSelector[K, T, V]) streamset.Observable[*streamset.ChangeSet[V, V]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[V, V]](func(observer streamset.Observer[*streamset.ChangeSet[V, V]]) streamset.Subscription {
		var mu sync.Mutex
		refCount := make(map[V]int)
		holderValue := make(map[K]V)

		acquire := func(v V, out *streamset.ChangeSet[V, V]) {
			refCount[v]++
			if refCount[v] == 1 {
				out.Append(streamset.NewAddChange[V, V](v, v))
			}
		}
		release := func(v V, out *streamset.ChangeSet[V, V]) {
			refCount[v]--
			if refCount[v] <= 0 {
				delete(refCount, v)
				out.Append(streamset.NewRemoveChange[V, V](v, v))
			}
		}

		sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				mu.Lock()
				out := streamset.NewChangeSet[V, V]()
				for _, c := range cs.Changes {
					switch c.Reason {
					case streamset.Add:
						v := selector(c.Key, c.Current)
						holderValue[c.Key] = v
						acquire(v, out)
					case streamset.Update:
						newV := selector(c.Key, c.Current)
						oldV, had := holderValue[c.Key]
						if had && oldV == newV {
							continue
						}
						if had {
							release(oldV, out)
						}
						holderValue[c.Key] = newV
						acquire(newV, out)
					case streamset.Remove:
						if v, had := holderValue[c.Key]; had {
							delete(holderValue, c.Key)
							release(v, out)
						}
					}
				}
				mu.Unlock()
				if !out.Empty() {
					observer.OnNext(out)
				}
			},
			Err:       observer.OnError,
			Completed: observer.OnCompleted,
		})

		return subscriptionFunc(sub.Dispose)
	})
}
