package operator

import "github.com/flowbase/streamset"

// setOp decides, given how many of the combined sources currently hold a
// key and how many sources there are in total, whether that key belongs
// in the combined result.
type setOp func(present, total int) bool

func and(present, total int) bool    { return present == total }
func or(present, total int) bool     { return present > 0 }
func xor(present, total int) bool    { return present == 1 }
func except(present, total int) bool { return present == 1 }

// combine is the shared machinery behind And/Or/Xor/Except: each of
// sources contributes Add/Update/Refresh/Remove against a shared
// per-key holder count plus last-known value, and op decides whether the
// key's combined-result membership changed. Except is asymmetric (only
// the first source's presence counts as a candidate addition; any other
// source holding the key excludes it), so it is implemented directly
// rather than through combine/except's symmetric present-count shape.
func combine[K comparable, T any](sources []streamset.Observable[*streamset.ChangeSet[K, T]], op setOp) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K, T]](func(observer streamset.Observer[*streamset.ChangeSet[K, T]]) streamset.Subscription {
		var muSlice = newKeyedMultiset[K, T](len(sources))

		process := func(idx int) func(cs *streamset.ChangeSet[K, T]) {
			return func(cs *streamset.ChangeSet[K, T]) {
				out := streamset.NewChangeSet[K, T]()
				muSlice.mu.Lock()
				for _, c := range cs.Changes {
					switch c.Reason {
					case streamset.Add, streamset.Update, streamset.Refresh:
						muSlice.set(idx, c.Key, c.Current)
					case streamset.Remove:
						muSlice.clear(idx, c.Key)
					}
					muSlice.resolve(c.Key, op, out)
				}
				muSlice.mu.Unlock()
				if !out.Empty() {
					observer.OnNext(out)
				}
			}
		}

		subs := make([]streamset.Subscription, len(sources))
		for i, src := range sources {
			subs[i] = src.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{Next: process(i)})
		}

		return subscriptionFunc(func() {
			for _, s := range subs {
				s.Dispose()
			}
		})
	})
}

// And emits only keys present in every source.
func And[K comparable, T any](sources ...streamset.Observable[*streamset.ChangeSet[K, T]]) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return combine(sources, and)
}

// Or emits keys present in at least one source, taking the value from
// the highest-index source that currently holds the key.
func Or[K comparable, T any](sources ...streamset.Observable[*streamset.ChangeSet[K, T]]) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return combine(sources, or)
}

// Xor emits keys present in exactly one source.
func Xor[K comparable, T any](sources ...streamset.Observable[*streamset.ChangeSet[K, T]]) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return combine(sources, xor)
}

// Except emits keys present in sources[0] and absent from every other
// source.
func Except[K comparable, T any](sources ...streamset.Observable[*streamset.ChangeSet[K, T]]) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K, T]](func(observer streamset.Observer[*streamset.ChangeSet[K, T]]) streamset.Subscription {
		m := newKeyedMultiset[K, T](len(sources))
		process := func(idx int) func(cs *streamset.ChangeSet[K, T]) {
			return func(cs *streamset.ChangeSet[K, T]) {
				out := streamset.NewChangeSet[K, T]()
				m.mu.Lock()
				for _, c := range cs.Changes {
					switch c.Reason {
					case streamset.Add, streamset.Update, streamset.Refresh:
						m.set(idx, c.Key, c.Current)
					case streamset.Remove:
						m.clear(idx, c.Key)
					}
					m.resolveExcept(c.Key, out)
				}
				m.mu.Unlock()
				if !out.Empty() {
					observer.OnNext(out)
				}
			}
		}
		subs := make([]streamset.Subscription, len(sources))
		for i, src := range sources {
			subs[i] = src.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{Next: process(i)})
		}
		return subscriptionFunc(func() {
			for _, s := range subs {
				s.Dispose()
			}
		})
	})
}
