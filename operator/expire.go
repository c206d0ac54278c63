package operator

import (
	"sync"
	"time"

	"github.com/flowbase/streamset"
)

// TTLSelector computes an optional time-to-live for an item; returning
// (0, false) means the item never expires.
type TTLSelector[K comparable, T any] func(key K, value T) (ttl time.Duration, ok bool)

// SourceEditor is the minimal mutation surface ExpireAfter needs from a
// keyed source to issue an out-of-band Remove when an item's TTL fires —
// satisfied directly by cache.SourceCache's Remove method.
type SourceEditor[K comparable] interface {
	Remove(key K) error
}

// ExpireAfter watches upstream and, for every item with a TTL, schedules
// a removal on source at now+ttl via scheduler. An Update cancels and
// re-schedules using the new item's TTL; a Remove cancels the pending
// timer outright. Returns a Subscription that cancels every pending timer
// when disposed.
func ExpireAfter[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], ttlSelector TTLSelector[K, T], scheduler streamset.Scheduler, source SourceEditor[K]) streamset.Subscription {
	var mu sync.Mutex
	timers := make(map[K]streamset.Subscription)

	cancel := func(key K) {
		if t, ok := timers[key]; ok {
			t.Dispose()
			delete(timers, key)
		}
	}

	schedule := func(key K, value T) {
		ttl, ok := ttlSelector(key, value)
		if !ok {
			return
		}
		timers[key] = scheduler.ScheduleRelative(ttl, func() {
			mu.Lock()
			delete(timers, key)
			mu.Unlock()
			_ = source.Remove(key)
		})
	}

	sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
		Next: func(cs *streamset.ChangeSet[K, T]) {
			mu.Lock()
			defer mu.Unlock()
			for _, c := range cs.Changes {
				switch c.Reason {
				case streamset.Add:
					schedule(c.Key, c.Current)
				case streamset.Update, streamset.Refresh:
					cancel(c.Key)
					schedule(c.Key, c.Current)
				case streamset.Remove:
					cancel(c.Key)
				}
			}
		},
	})

	return subscriptionFunc(func() {
		mu.Lock()
		for key := range timers {
			cancel(key)
		}
		mu.Unlock()
		sub.Dispose()
	})
}
