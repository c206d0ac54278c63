package operator

import (
	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/internal/diffutil"
)

// SuppressEquivalentUpdates downgrades an Update to a Refresh whenever
// the previous and current values serialize to an identical JSON merge
// patch, so a producer that always calls add-or-update (rather than
// tracking whether anything actually changed) does not fan out a full
// Update to every downstream sort/page/transform for a no-op write. Add,
// Remove, Refresh, and Moved pass through unchanged.
func SuppressEquivalentUpdates[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]]) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K, T]](func(observer streamset.Observer[*streamset.ChangeSet[K, T]]) streamset.Subscription {
		sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				out := streamset.NewChangeSet[K, T]()
				for _, c := range cs.Changes {
					if c.Reason == streamset.Update && c.HasPrevious && !diffutil.Changed(c.Previous, c.Current) {
						out.Append(streamset.NewRefreshChange(c.Key, c.Current))
						continue
					}
					out.Append(c)
				}
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
