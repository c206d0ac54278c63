package operator

import "github.com/flowbase/streamset"

// DisposeOnRemove treats every value passing through upstream as owning a
// resource: disposeFn is called exactly once per key, the moment it is
// evicted (Remove) or replaced by an Update (against the superseded
// Previous value, never the new Current), so an operator chain built
// around scarce resources (file handles, subscriptions, connections)
// never leaks one just because the item holding it left the collection.
// It never fires for Add, Refresh, or Moved. Returns a Subscription over
// upstream; disposing it stops watching but does not retroactively
// dispose anything still present.
func DisposeOnRemove[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], disposeFn func(key K, value T)) streamset.Subscription {
	return upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
		Next: func(cs *streamset.ChangeSet[K, T]) {
			for _, c := range cs.Changes {
				switch c.Reason {
				case streamset.Remove:
					disposeFn(c.Key, c.Current)
				case streamset.Update:
					disposeFn(c.Key, c.Previous)
				}
			}
		},
	})
}
