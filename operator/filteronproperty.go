package operator

import (
	"sync"

	"github.com/flowbase/streamset"
)

// FilterOnProperty re-evaluates predicate for a key not only when the
// upstream item itself changes but also whenever source(item) emits,
// letting a filter react to state the upstream collection doesn't
// consider a change at all (e.g. a player's "online" flag tracked
// outside the roster cache). Each currently-held key owns one
// subscription to source(item) in a streamset.KeyedDisposables forest;
// Remove drops that key's subscription, upstream completion disposes
// the whole forest.
func FilterOnProperty[K comparable, T, P any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], source streamset.PropertyChangeSource[T, P], predicate func(key K, value T, prop P) bool) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K, T]](func(observer streamset.Observer[*streamset.ChangeSet[K, T]]) streamset.Subscription {
		var mu sync.Mutex
		values := make(map[K]T)
		latestProp := make(map[K]P)
		included := make(map[K]bool)
		watches := streamset.NewKeyedDisposables[K]()

		emitOne := func(c streamset.Change[K, T]) {
			out := streamset.NewChangeSet[K, T]()
			out.Append(c)
			observer.OnNext(out)
		}

		reevaluate := func(key K) {
			mu.Lock()
			value, ok := values[key]
			if !ok {
				mu.Unlock()
				return
			}
			prop := latestProp[key]
			matches := predicate(key, value, prop)
			wasIncluded := included[key]
			switch {
			case matches && !wasIncluded:
				included[key] = true
				mu.Unlock()
				emitOne(streamset.NewAddChange(key, value))
			case !matches && wasIncluded:
				delete(included, key)
				mu.Unlock()
				emitOne(streamset.NewRemoveChange(key, value))
			case matches && wasIncluded:
				mu.Unlock()
				emitOne(streamset.NewRefreshChange(key, value))
			default:
				mu.Unlock()
			}
		}

		watch := func(key K, value T) {
			sub := source(value).Subscribe(streamset.ObserverFunc[P]{
				Next: func(p P) {
					mu.Lock()
					latestProp[key] = p
					mu.Unlock()
					reevaluate(key)
				},
			})
			watches.Set(key, streamset.DisposableFunc(func() error { sub.Dispose(); return nil }))
		}

		sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				for _, c := range cs.Changes {
					switch c.Reason {
					case streamset.Add:
						mu.Lock()
						values[c.Key] = c.Current
						mu.Unlock()
						watch(c.Key, c.Current)
						reevaluate(c.Key)
					case streamset.Update, streamset.Refresh:
						mu.Lock()
						values[c.Key] = c.Current
						mu.Unlock()
						watch(c.Key, c.Current)
						reevaluate(c.Key)
					case streamset.Remove:
						_ = watches.Drop(c.Key)
						mu.Lock()
						delete(values, c.Key)
						delete(latestProp, c.Key)
						wasIncluded := included[c.Key]
						delete(included, c.Key)
						mu.Unlock()
						if wasIncluded {
							emitOne(streamset.NewRemoveChange(c.Key, c.Current))
						}
					}
				}
			},
			Err: observer.OnError,
			Completed: func() {
				_ = watches.DisposeAll()
				observer.OnCompleted()
			},
		})

		return subscriptionFunc(func() {
			sub.Dispose()
			_ = watches.DisposeAll()
		})
	})
}

// FilterOnObservable is FilterOnProperty's boolean-trigger special case:
// source emits true/false directly and that is the match decision,
// without consulting the item's own fields.
func FilterOnObservable[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], source streamset.PropertyChangeSource[T, bool]) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return FilterOnProperty[K, T, bool](upstream, source, func(_ K, _ T, included bool) bool { return included })
}

// TransformOnProperty re-runs fn for a key whenever source(item) emits,
// in addition to upstream Add/Update/Refresh, so a derived value can
// track state external to the upstream collection. Re-transforms are
// published as Refresh; fn errors are dropped silently for the
// triggered path since there is no natural upstream change to fail.
func TransformOnProperty[K comparable, T, P, U any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], source streamset.PropertyChangeSource[T, P], fn func(key K, value T, prop P) (U, error)) streamset.Observable[*streamset.ChangeSet[K, U]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K, U]](func(observer streamset.Observer[*streamset.ChangeSet[K, U]]) streamset.Subscription {
		var mu sync.Mutex
		values := make(map[K]T)
		latestProp := make(map[K]P)
		present := make(map[K]bool)
		watches := streamset.NewKeyedDisposables[K]()

		emit := func(c streamset.Change[K, U]) {
			out := streamset.NewChangeSet[K, U]()
			out.Append(c)
			observer.OnNext(out)
		}

		recompute := func(key K, reason streamset.Reason) {
			mu.Lock()
			value, ok := values[key]
			prop := latestProp[key]
			mu.Unlock()
			if !ok {
				return
			}
			u, err := fn(key, value, prop)
			if err != nil {
				return
			}
			switch reason {
			case streamset.Add:
				present[key] = true
				emit(streamset.NewAddChange(key, u))
			default:
				emit(streamset.NewRefreshChange(key, u))
			}
		}

		watch := func(key K, value T) {
			sub := source(value).Subscribe(streamset.ObserverFunc[P]{
				Next: func(p P) {
					mu.Lock()
					latestProp[key] = p
					mu.Unlock()
					recompute(key, streamset.Refresh)
				},
			})
			watches.Set(key, streamset.DisposableFunc(func() error { sub.Dispose(); return nil }))
		}

		sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				for _, c := range cs.Changes {
					switch c.Reason {
					case streamset.Add:
						mu.Lock()
						values[c.Key] = c.Current
						mu.Unlock()
						watch(c.Key, c.Current)
						recompute(c.Key, streamset.Add)
					case streamset.Update, streamset.Refresh:
						mu.Lock()
						values[c.Key] = c.Current
						mu.Unlock()
						watch(c.Key, c.Current)
						recompute(c.Key, streamset.Refresh)
					case streamset.Remove:
						_ = watches.Drop(c.Key)
						mu.Lock()
						delete(values, c.Key)
						delete(latestProp, c.Key)
						wasPresent := present[c.Key]
						delete(present, c.Key)
						mu.Unlock()
						if wasPresent {
							var zero U
							emit(streamset.NewRemoveChange(c.Key, zero))
						}
					}
				}
			},
			Err: observer.OnError,
			Completed: func() {
				_ = watches.DisposeAll()
				observer.OnCompleted()
			},
		})

		return subscriptionFunc(func() {
			sub.Dispose()
			_ = watches.DisposeAll()
		})
	})
}
