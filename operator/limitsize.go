package operator

import (
	"sync"

	"github.com/gammazero/deque"

	"github.com/flowbase/streamset"
)

// BatchSourceEditor is the mutation surface LimitSizeTo needs from a
// keyed source to evict its oldest-by-insertion-order excess as one
// transaction instead of one Edit per evicted key — satisfied directly
// by cache.SourceCache's RemoveMany method.
type BatchSourceEditor[K comparable] interface {
	RemoveMany(keys []K) error
}

// LimitSizeTo watches upstream and, whenever the tracked count exceeds n,
// schedules removal of the oldest-by-insertion-order excess items via a
// single source.RemoveMany call, coalescing same-tick growth into one
// scheduler callback and one eviction transaction rather than firing once
// per Add or once per evicted key. Returns a Subscription that stops
// tracking and cancels any pending eviction tick.
func LimitSizeTo[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], n int, scheduler streamset.Scheduler, source BatchSourceEditor[K]) streamset.Subscription {
	var mu sync.Mutex
	var order deque.Deque[K]
	present := make(map[K]bool)
	var pendingTick streamset.Subscription

	scheduleEviction := func() {
		if pendingTick != nil {
			return
		}
		pendingTick = scheduler.ScheduleRelative(0, func() {
			mu.Lock()
			var toRemove []K
			for order.Len() > n {
				key := order.PopFront()
				delete(present, key)
				toRemove = append(toRemove, key)
			}
			pendingTick = nil
			mu.Unlock()
			if len(toRemove) > 0 {
				_ = source.RemoveMany(toRemove)
			}
		})
	}

	sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
		Next: func(cs *streamset.ChangeSet[K, T]) {
			mu.Lock()
			for _, c := range cs.Changes {
				switch c.Reason {
				case streamset.Add:
					if !present[c.Key] {
						present[c.Key] = true
						order.PushBack(c.Key)
					}
				case streamset.Remove:
					if present[c.Key] {
						delete(present, c.Key)
						removeFromDeque(&order, c.Key)
					}
				}
			}
			grew := order.Len() > n
			mu.Unlock()
			if grew {
				scheduleEviction()
			}
		},
	})

	return subscriptionFunc(func() {
		mu.Lock()
		if pendingTick != nil {
			pendingTick.Dispose()
			pendingTick = nil
		}
		mu.Unlock()
		sub.Dispose()
	})
}

func removeFromDeque[K comparable](d *deque.Deque[K], key K) {
	for i := 0; i < d.Len(); i++ {
		if d.At(i) == key {
			d.Remove(i)
			return
		}
	}
}
