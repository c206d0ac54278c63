package operator

import (
	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/cache"
	"github.com/flowbase/streamset/list"
)

// AsObservableCache materializes upstream into a new, independently owned
// SourceCache: every ChangeSet is replayed into it via Edit, so the
// result supports everything a built-from-scratch cache does (Lookup,
// WatchKey, further operators) rather than just re-exposing the
// upstream's own Connect observable. The returned cache is closed when
// upstream completes or errors; dispose the returned Subscription to stop
// materializing early without closing the cache.
func AsObservableCache[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]]) (*cache.SourceCache[K, T], streamset.Subscription) {
	target := cache.New[K, T]()
	sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
		Next: func(cs *streamset.ChangeSet[K, T]) {
			_ = target.Edit(func(e *cache.Editor[K, T]) {
				for _, c := range cs.Changes {
					switch c.Reason {
					case streamset.Add, streamset.Update:
						e.AddOrUpdate(c.Key, c.Current)
					case streamset.Remove:
						e.Remove(c.Key)
					case streamset.Refresh:
						e.Refresh(c.Key)
					}
				}
			})
		},
		Err:       func(err error) { target.Close(err) },
		Completed: func() { target.Close(nil) },
	})
	return target, sub
}

// AsObservableList is AsObservableCache's indexed counterpart, replaying
// an upstream ListChangeSet stream into a new, independently owned
// SourceList.
func AsObservableList[T any](upstream streamset.Observable[*streamset.ListChangeSet[T]]) (*list.SourceList[T], streamset.Subscription) {
	target := list.New[T]()
	sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ListChangeSet[T]]{
		Next: func(cs *streamset.ListChangeSet[T]) {
			_ = target.Edit(func(e *list.Editor[T]) {
				for _, c := range cs.Changes {
					switch c.Reason {
					case streamset.ListAdd:
						e.Insert(c.Index, c.Items[0])
					case streamset.ListAddRange:
						e.InsertRange(c.Index, c.Items)
					case streamset.ListRemove:
						e.RemoveAt(c.Index)
					case streamset.ListRemoveRange:
						e.RemoveRange(c.Index, c.Count)
					case streamset.ListReplace:
						e.ReplaceAt(c.Index, c.Items[0])
					case streamset.ListMoved:
						e.Move(c.PreviousIndex, c.Index)
					case streamset.ListRefresh:
						e.RefreshAt(c.Index)
					case streamset.ListClear:
						e.Clear()
					}
				}
			})
		},
		Err:       func(err error) { target.Close(err) },
		Completed: func() { target.Close(nil) },
	})
	return target, sub
}
