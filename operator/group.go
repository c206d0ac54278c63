package operator

import (
	"sync"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/cache"
)

// GroupKeySelector computes the group an item currently belongs to. It is
// re-evaluated on every Add/Update/Refresh, so an item can move between
// groups across an Update.
type GroupKeySelector[K comparable, T any, GK comparable] func(key K, value T) GK

// Group is one bucket produced by GroupOn: GroupKey plus an owned nested
// cache holding exactly the upstream items currently mapped to it. The
// nested cache is itself a fully observable source, so downstream code
// can Connect/Filter/Sort it like any other collection.
type Group[K comparable, T any, GK comparable] struct {
	GroupKey GK
	Cache    *cache.SourceCache[K, T]
}

// GroupOn partitions upstream into one nested cache per distinct group
// key, emitting an outer Add when a group key is first seen and an outer
// Remove once a group's nested cache becomes empty. An item moving from
// one group to another (detected by comparing the group key computed for
// Update/Refresh against the key it was last filed under) is removed from
// its old group's cache and added to its new one in the same pass.
func GroupOn[K comparable, T any, GK comparable](upstream streamset.Observable[*streamset.ChangeSet[K, T]], keySelector GroupKeySelector[K, T, GK]) streamset.Observable[*streamset.ChangeSet[GK, *Group[K, T, GK]]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[GK, *Group[K, T, GK]]](func(observer streamset.Observer[*streamset.ChangeSet[GK, *Group[K, T, GK]]]) streamset.Subscription {
		var mu sync.Mutex
		groups := make(map[GK]*Group[K, T, GK])
		memberOf := make(map[K]GK)

		groupOf := func(gk GK) *Group[K, T, GK] {
			g, ok := groups[gk]
			if !ok {
				g = &Group[K, T, GK]{GroupKey: gk, Cache: cache.New[K, T]()}
				groups[gk] = g
			}
			return g
		}

		// dropIfEmpty removes a group's outer entry once its nested cache
		// has no members left; it never closes the nested cache, since a
		// consumer may still hold a live Connect subscription to it.
		dropIfEmpty := func(gk GK, out *streamset.ChangeSet[GK, *Group[K, T, GK]]) {
			g, ok := groups[gk]
			if !ok || g.Cache.Count() > 0 {
				return
			}
			delete(groups, gk)
			out.Append(streamset.NewRemoveChange[GK, *Group[K, T, GK]](gk, g))
		}

		process := func(cs *streamset.ChangeSet[K, T]) {
			out := streamset.NewChangeSet[GK, *Group[K, T, GK]]()
			for _, c := range cs.Changes {
				switch c.Reason {
				case streamset.Add:
					gk := keySelector(c.Key, c.Current)
					_, existed := groups[gk]
					g := groupOf(gk)
					memberOf[c.Key] = gk
					_ = g.Cache.AddOrUpdate(c.Key, c.Current)
					if !existed {
						out.Append(streamset.NewAddChange[GK, *Group[K, T, GK]](gk, g))
					}
				case streamset.Update, streamset.Refresh:
					gk := keySelector(c.Key, c.Current)
					oldGk, had := memberOf[c.Key]
					if had && oldGk != gk {
						if oldG, ok := groups[oldGk]; ok {
							_ = oldG.Cache.Remove(c.Key)
						}
						dropIfEmpty(oldGk, out)
					}
					_, existed := groups[gk]
					g := groupOf(gk)
					memberOf[c.Key] = gk
					if c.Reason == streamset.Refresh && !had {
						_ = g.Cache.Refresh(c.Key)
					} else {
						_ = g.Cache.AddOrUpdate(c.Key, c.Current)
					}
					if !existed {
						out.Append(streamset.NewAddChange[GK, *Group[K, T, GK]](gk, g))
					}
				case streamset.Remove:
					gk, had := memberOf[c.Key]
					if !had {
						continue
					}
					delete(memberOf, c.Key)
					if g, ok := groups[gk]; ok {
						_ = g.Cache.Remove(c.Key)
					}
					dropIfEmpty(gk, out)
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
			Err: observer.OnError,
			Completed: func() {
				mu.Lock()
				for _, g := range groups {
					g.Cache.Close(nil)
				}
				mu.Unlock()
				observer.OnCompleted()
			},
		})

		return subscriptionFunc(func() {
			sub.Dispose()
		})
	})
}
