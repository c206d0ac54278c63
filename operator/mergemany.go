package operator

import "github.com/flowbase/streamset"

// MergedValue tags a value emitted by one item's inner observable with
// the key it came from, so a consumer merging many per-item streams can
// tell them apart.
type MergedValue[K comparable, U any] struct {
	Key   K
	Value U
}

// InnerObservableSelector derives the per-item observable MergeMany
// subscribes to for as long as that item remains present upstream.
type InnerObservableSelector[K comparable, T any, U any] func(key K, value T) streamset.Observable[U]

// MergeMany subscribes to selector(key, value) for every item currently
// present upstream, re-subscribing on Update with a fresh value and
// disposing the subscription the moment the key leaves (Remove), forming
// the "subscription forest" shape: one live inner subscription per
// present key, never more, never orphaned. Every inner OnNext is
// forwarded downstream tagged with its key; an inner OnCompleted just
// ends that one subscription without affecting siblings, and an inner
// OnError is forwarded downstream; it does not dispose the upstream
// subscription or the other inner subscriptions.
func MergeMany[K comparable, T any, U any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], selector InnerObservableSelector[K, T, U]) streamset.Observable[MergedValue[K, U]] {
	return streamset.ObservableFunc[MergedValue[K, U]](func(observer streamset.Observer[MergedValue[K, U]]) streamset.Subscription {
		inner := streamset.NewKeyedDisposables[K]()

		subscribe := func(key K, value T) {
			sub := selector(key, value).Subscribe(streamset.ObserverFunc[U]{
				Next: func(v U) {
					observer.OnNext(MergedValue[K, U]{Key: key, Value: v})
				},
				Err: observer.OnError,
			})
			inner.Set(key, streamset.DisposableFunc(func() error { sub.Dispose(); return nil }))
		}

		sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				for _, c := range cs.Changes {
					switch c.Reason {
					case streamset.Add, streamset.Update:
						subscribe(c.Key, c.Current)
					case streamset.Remove:
						_ = inner.Drop(c.Key)
					}
				}
			},
			Err: observer.OnError,
			Completed: func() {
				_ = inner.DisposeAll()
				observer.OnCompleted()
			},
		})

		return subscriptionFunc(func() {
			_ = inner.DisposeAll()
			sub.Dispose()
		})
	})
}
