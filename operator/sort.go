package operator

import (
	"sync"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/store"
)

// Sort maintains a sorted projection of upstream under cmp, forwarding
// every Add/Update/Refresh/Remove (a key new to the projection as an Add)
// and, when an Update or Refresh changes a key's position, following it
// with a Moved change carrying PreviousIndex/CurrentIndex so a downstream
// list view can maintain its own position without re-deriving it.
//
// controller, if non-nil, supplies a replacement comparator whenever it
// emits; the operator re-sorts its whole projection and emits a Moved
// change for every key whose position changed, rather than treating the
// resort as Remove+Add.
func Sort[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], cmp store.Comparator[T], controller streamset.Observable[store.Comparator[T]]) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K, T]](func(observer streamset.Observer[*streamset.ChangeSet[K, T]]) streamset.Subscription {
		var mu sync.Mutex
		projection := store.NewSorted[K, T](cmp)

		process := func(cs *streamset.ChangeSet[K, T]) {
			out := streamset.NewChangeSet[K, T]()
			for _, c := range cs.Changes {
				switch c.Reason {
				case streamset.Add, streamset.Update, streamset.Refresh:
					prevIdx, curIdx := projection.Upsert(c.Key, c.Current)
					switch {
					case prevIdx < 0:
						out.Append(streamset.NewAddChange[K, T](c.Key, c.Current))
					case prevIdx == curIdx:
						out.Append(c)
					default:
						out.Append(c)
						out.Append(streamset.NewMovedChange(c.Key, c.Current, prevIdx, curIdx))
					}
				case streamset.Remove:
					projection.Remove(c.Key)
					out.Append(c)
				}
			}
			if !out.Empty() {
				observer.OnNext(out)
			}
		}

		resort := func(newCmp store.Comparator[T]) {
			before := projection.Snapshot()
			positions := make(map[K]int, len(before))
			for i, k := range before {
				positions[k] = i
			}
			projection = rebuildSorted(projection, newCmp)
			out := streamset.NewChangeSet[K, T]()
			after := projection.Snapshot()
			for i, k := range after {
				if positions[k] != i {
					_, v := projection.At(i)
					out.Append(streamset.NewMovedChange(k, v, positions[k], i))
				}
			}
			if !out.Empty() {
				observer.OnNext(out)
			}
		}

		sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				mu.Lock()
				process(cs)
				mu.Unlock()
			},
			Err:       observer.OnError,
			Completed: observer.OnCompleted,
		})

		var ctrlSub streamset.Subscription
		if controller != nil {
			ctrlSub = controller.Subscribe(streamset.ObserverFunc[store.Comparator[T]]{
				Next: func(newCmp store.Comparator[T]) {
					mu.Lock()
					resort(newCmp)
					mu.Unlock()
				},
			})
		}

		return subscriptionFunc(func() {
			sub.Dispose()
			if ctrlSub != nil {
				ctrlSub.Dispose()
			}
		})
	})
}

// rebuildSorted re-derives a Sorted projection under a new comparator,
// preserving its current membership.
func rebuildSorted[K comparable, T any](old *store.Sorted[K, T], cmp store.Comparator[T]) *store.Sorted[K, T] {
	fresh := store.NewSorted[K, T](cmp)
	for i := 0; i < old.Len(); i++ {
		k, v := old.At(i)
		fresh.Upsert(k, v)
	}
	return fresh
}
