package operator

import (
	"sync"

	"github.com/flowbase/streamset"
)

// Switch subscribes to whatever Observable sources most recently emitted,
// disposing the previous subscription first, so a downstream consumer
// always sees exactly one upstream's values at a time. Useful for
// re-sourcing a view entirely (e.g. switching between two differently
// filtered caches) rather than combining them.
func Switch[T any](sources streamset.Observable[streamset.Observable[T]]) streamset.Observable[T] {
	return streamset.ObservableFunc[T](func(observer streamset.Observer[T]) streamset.Subscription {
		var mu sync.Mutex
		var current streamset.Subscription
		var generation int

		outerSub := sources.Subscribe(streamset.ObserverFunc[streamset.Observable[T]]{
			Next: func(inner streamset.Observable[T]) {
				mu.Lock()
				if current != nil {
					current.Dispose()
				}
				generation++
				gen := generation
				mu.Unlock()

				sub := inner.Subscribe(streamset.ObserverFunc[T]{
					Next: func(v T) {
						mu.Lock()
						stale := gen != generation
						mu.Unlock()
						if !stale {
							observer.OnNext(v)
						}
					},
					Err: observer.OnError,
				})

				mu.Lock()
				if gen == generation {
					current = sub
				} else {
					sub.Dispose()
				}
				mu.Unlock()
			},
			Err:       observer.OnError,
			Completed: observer.OnCompleted,
		})

		return subscriptionFunc(func() {
			mu.Lock()
			if current != nil {
				current.Dispose()
			}
			mu.Unlock()
			outerSub.Dispose()
		})
	})
}
