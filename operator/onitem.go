package operator

import "github.com/flowbase/streamset"

// OnItemAdded subscribes to upstream purely for its side effects, calling
// onAdded exactly once per key the first time it appears (an Add), never
// again for later Updates/Refreshes to the same key. Returns a
// Subscription over upstream; dispose it to stop observing.
func OnItemAdded[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], onAdded func(key K, value T)) streamset.Subscription {
	return upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
		Next: func(cs *streamset.ChangeSet[K, T]) {
			for _, c := range cs.Changes {
				if c.Reason == streamset.Add {
					onAdded(c.Key, c.Current)
				}
			}
		},
	})
}

// OnItemRemoved mirrors OnItemAdded for Remove: onRemoved fires exactly
// once per key, with the item's last known value, when it leaves.
func OnItemRemoved[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], onRemoved func(key K, value T)) streamset.Subscription {
	return upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
		Next: func(cs *streamset.ChangeSet[K, T]) {
			for _, c := range cs.Changes {
				if c.Reason == streamset.Remove {
					onRemoved(c.Key, c.Current)
				}
			}
		},
	})
}

// OnItemUpdated fires onUpdated once per Update, with the previous and
// current value. Refresh (no value change) and Add/Remove never trigger
// it — use OnItemAdded/OnItemRemoved for those transitions.
func OnItemUpdated[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], onUpdated func(key K, previous, current T)) streamset.Subscription {
	return upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
		Next: func(cs *streamset.ChangeSet[K, T]) {
			for _, c := range cs.Changes {
				if c.Reason == streamset.Update {
					onUpdated(c.Key, c.Previous, c.Current)
				}
			}
		},
	})
}
