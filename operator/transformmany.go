package operator

import (
	"sync"

	"github.com/flowbase/streamset"
)

// ExpandFunc derives the set of child items one upstream item currently
// owns, keyed independently of the parent's own key space.
type ExpandFunc[K comparable, T any, K2 comparable, U any] func(key K, value T) map[K2]U

// TransformMany flattens a keyed collection into a differently-keyed one
// by expanding each item into zero or more child items. A parent Update
// re-expands and diffs against the child keys it previously owned,
// emitting Add for newly-owned children, Update for every child it still
// owns (whether or not its value changed), and Remove for ones no longer
// produced. A parent Remove
// removes every child it owned. Two parents producing the same child key
// is a conflict the last-processed parent wins, since child ownership is
// tracked per parent key, not de-duplicated across parents.
func TransformMany[K comparable, T any, K2 comparable, U any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], expand ExpandFunc[K, T, K2, U]) streamset.Observable[*streamset.ChangeSet[K2, U]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K2, U]](func(observer streamset.Observer[*streamset.ChangeSet[K2, U]]) streamset.Subscription {
		var mu sync.Mutex
		ownedBy := make(map[K]map[K2]U)
		current := make(map[K2]U)

		applyExpansion := func(parent K, next map[K2]U, out *streamset.ChangeSet[K2, U]) {
			prev := ownedBy[parent]
			for k2, v := range next {
				if old, existed := prev[k2]; existed {
					out.Append(streamset.NewUpdateChange(k2, old, v))
				} else {
					out.Append(streamset.NewAddChange[K2, U](k2, v))
				}
				current[k2] = v
			}
			for k2, v := range prev {
				if _, stillOwned := next[k2]; !stillOwned {
					out.Append(streamset.NewRemoveChange(k2, v))
					delete(current, k2)
				}
			}
			ownedBy[parent] = next
		}

		removeParent := func(parent K, out *streamset.ChangeSet[K2, U]) {
			prev, ok := ownedBy[parent]
			if !ok {
				return
			}
			for k2, v := range prev {
				out.Append(streamset.NewRemoveChange(k2, v))
				delete(current, k2)
			}
			delete(ownedBy, parent)
		}

		sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				mu.Lock()
				out := streamset.NewChangeSet[K2, U]()
				for _, c := range cs.Changes {
					switch c.Reason {
					case streamset.Add, streamset.Update:
						applyExpansion(c.Key, expand(c.Key, c.Current), out)
					case streamset.Remove:
						removeParent(c.Key, out)
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
