package operator

import (
	"sync"
	"time"

	"github.com/flowbase/streamset"
)

// BufferIf accumulates upstream ChangeSets into a buffer while pause's
// most recent value is true, flushing one coalesced ChangeSet (reduced
// through the same rules a source's edit transaction uses) whenever pause
// transitions to false, the optional timeout elapses since buffering
// started, or interval ticks while still paused. While pause has never
// emitted, or its last value is false, upstream passes through unchanged.
func BufferIf[K comparable, T any](
	upstream streamset.Observable[*streamset.ChangeSet[K, T]],
	pause streamset.Observable[bool],
	scheduler streamset.Scheduler,
	timeout time.Duration,
	interval time.Duration,
) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K, T]](func(observer streamset.Observer[*streamset.ChangeSet[K, T]]) streamset.Subscription {
		var mu sync.Mutex
		paused := false
		var buffered []streamset.Change[K, T]
		var timeoutTimer, intervalTimer streamset.Subscription
		// A key whose first buffered change is a Remove was delivered
		// downstream before buffering began, so it always existed.
		existedFn := func(key K) bool { return true }

		flush := func() {
			if len(buffered) == 0 {
				return
			}
			reduced, err := streamset.ReduceKeyed(buffered, existedFn)
			buffered = nil
			if timeoutTimer != nil {
				timeoutTimer.Dispose()
				timeoutTimer = nil
			}
			if err == nil && !reduced.Empty() {
				observer.OnNext(reduced)
			}
		}

		startTimers := func() {
			if timeout > 0 && timeoutTimer == nil {
				timeoutTimer = scheduler.ScheduleRelative(timeout, func() {
					mu.Lock()
					flush()
					mu.Unlock()
				})
			}
			if interval > 0 && intervalTimer == nil {
				intervalTimer = scheduler.SchedulePeriodic(interval, func() {
					mu.Lock()
					if paused {
						flush()
					}
					mu.Unlock()
				})
			}
		}

		sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				mu.Lock()
				if paused {
					buffered = append(buffered, cs.Changes...)
					startTimers()
				} else {
					observer.OnNext(cs)
				}
				mu.Unlock()
			},
			Err:       observer.OnError,
			Completed: observer.OnCompleted,
		})

		pauseSub := pause.Subscribe(streamset.ObserverFunc[bool]{
			Next: func(p bool) {
				mu.Lock()
				wasPaused := paused
				paused = p
				if wasPaused && !p {
					flush()
				}
				mu.Unlock()
			},
		})

		return subscriptionFunc(func() {
			mu.Lock()
			if timeoutTimer != nil {
				timeoutTimer.Dispose()
			}
			if intervalTimer != nil {
				intervalTimer.Dispose()
			}
			mu.Unlock()
			sub.Dispose()
			pauseSub.Dispose()
		})
	})
}
