package streamset

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler is the time contract consumed by every time-driven operator:
// there are no wall-clock reads anywhere else in this module, so
// swapping in a mock scheduler makes expiry/size/buffer behavior
// deterministic in tests.
type Scheduler interface {
	Now() time.Time
	Schedule(at time.Time, action func()) Subscription
	ScheduleRelative(d time.Duration, action func()) Subscription
	SchedulePeriodic(interval time.Duration, action func()) Subscription
}

// clockScheduler implements Scheduler over a github.com/benbjohnson/clock
// Clock, which is clock.New() (the real wall clock) in production and
// clock.NewMock() in tests, advanced explicitly instead of sleeping.
type clockScheduler struct {
	clock clock.Clock
}

// NewScheduler returns the production Scheduler, backed by the real wall
// clock.
func NewScheduler() Scheduler {
	return &clockScheduler{clock: clock.New()}
}

// NewSchedulerWithClock returns a Scheduler backed by an arbitrary
// clock.Clock, most commonly a *clock.Mock in tests:
//
//	mock := clock.NewMock()
//	sched := streamset.NewSchedulerWithClock(mock)
//	... construct an operator with sched ...
//	mock.Add(200 * time.Millisecond) // deterministically fires timers
func NewSchedulerWithClock(c clock.Clock) Scheduler {
	return &clockScheduler{clock: c}
}

func (s *clockScheduler) Now() time.Time { return s.clock.Now() }

func (s *clockScheduler) Schedule(at time.Time, action func()) Subscription {
	d := at.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	return s.ScheduleRelative(d, action)
}

func (s *clockScheduler) ScheduleRelative(d time.Duration, action func()) Subscription {
	timer := s.clock.Timer(d)
	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C:
			action()
		case <-done:
			timer.Stop()
		}
	}()
	return subscriptionFunc(func() {
		select {
		case <-done:
		default:
			close(done)
		}
	})
}

func (s *clockScheduler) SchedulePeriodic(interval time.Duration, action func()) Subscription {
	ticker := s.clock.Ticker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				action()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return subscriptionFunc(func() {
		select {
		case <-done:
		default:
			close(done)
		}
	})
}
