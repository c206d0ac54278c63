package streamset

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/flowbase/streamset/internal/corelog"
	"github.com/flowbase/streamset/internal/idgen"
)

// Subject is the default push-observer implementation backing every
// source collection's connect(): a multicast point with "subscribe under
// the writer lock, then forward live values with no gap or duplicate"
// sequencing.
//
// A dedicated, bounded channel per subscriber is used (rather than
// publishing directly into caller code) so a slow subscriber cannot stall
// the writer; once a subscriber's channel is full, the newest value is
// dropped and logged rather than blocking the source.
type Subject[T any] struct {
	mu          sync.Mutex
	subscribers map[int64]*subjectSub[T]
	closed      atomic.Bool
	err         error
	capacity    int
}

type subjectSub[T any] struct {
	id     int64
	ch     chan T
	done   chan struct{}
	closed atomic.Bool
}

// NewSubject returns a Subject whose per-subscriber channels buffer up to
// capacity pending values before dropping.
func NewSubject[T any](capacity int) *Subject[T] {
	if capacity <= 0 {
		capacity = 16
	}
	return &Subject[T]{subscribers: make(map[int64]*subjectSub[T]), capacity: capacity}
}

// Subscribe registers a raw channel-based subscriber and returns it along
// with a Subscription that unregisters it. Callers that already hold the
// source's writer lock should call this directly so the "initial snapshot
// then live deltas" sequencing holds; ObserveChannel bridges the returned
// channel to the Observer contract.
func (s *Subject[T]) Subscribe(capacity int) (ch <-chan T, sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := idgen.Next()
	if capacity <= 0 {
		capacity = s.capacity
	}
	sj := &subjectSub[T]{id: id, ch: make(chan T, capacity), done: make(chan struct{})}
	if s.closed.Load() {
		close(sj.ch)
		return sj.ch, subscriptionFunc(func() {})
	}
	s.subscribers[id] = sj
	return sj.ch, subscriptionFunc(func() { s.unsubscribe(id) })
}

// SubscribeWithInitial registers a subscriber and seeds its channel with
// initial before returning, so the caller (a source holding its own
// writer lock across both this call and every Publish) can deliver the
// "initial snapshot, then live deltas" sequencing without a gap or a
// duplicate: no Publish can interleave before this subscriber is
// registered, because the source serializes both under one lock.
func (s *Subject[T]) SubscribeWithInitial(initial T, capacity int) (<-chan T, Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := idgen.Next()
	if capacity <= 0 {
		capacity = s.capacity
	}
	if capacity < 1 {
		capacity = 1
	}
	sj := &subjectSub[T]{id: id, ch: make(chan T, capacity), done: make(chan struct{})}
	if s.closed.Load() {
		close(sj.ch)
		return sj.ch, subscriptionFunc(func() {})
	}
	sj.ch <- initial
	s.subscribers[id] = sj
	return sj.ch, subscriptionFunc(func() { s.unsubscribe(id) })
}

func (s *Subject[T]) unsubscribe(id int64) {
	s.mu.Lock()
	sj, ok := s.subscribers[id]
	if ok {
		delete(s.subscribers, id)
	}
	s.mu.Unlock()
	if ok && sj.closed.CompareAndSwap(false, true) {
		close(sj.ch)
	}
}

// Publish delivers value to every current subscriber. It must be called
// while the owning source holds its writer lock, so publication order
// matches edit-transaction order.
func (s *Subject[T]) Publish(value T) {
	s.mu.Lock()
	subs := make([]*subjectSub[T], 0, len(s.subscribers))
	for _, sj := range s.subscribers {
		subs = append(subs, sj)
	}
	s.mu.Unlock()

	for _, sj := range subs {
		select {
		case sj.ch <- value:
		default:
			corelog.Warn("streamset: subscriber channel full, dropping change set", zap.Int64("subscriber_id", sj.id))
		}
	}
}

// Close marks the subject terminated: no further Publish is accepted and
// every subscriber's channel is closed. err, if non-nil, should be
// surfaced by callers bridging to the Observer contract as OnError;
// otherwise subscribers observe a clean OnCompleted.
func (s *Subject[T]) Close(err error) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	s.err = err
	subs := s.subscribers
	s.subscribers = make(map[int64]*subjectSub[T])
	s.mu.Unlock()

	for _, sj := range subs {
		if sj.closed.CompareAndSwap(false, true) {
			close(sj.ch)
		}
	}
}

// Err returns the terminal error passed to Close, if any.
func (s *Subject[T]) Err() error { return s.err }

// SubscriberCount returns the number of currently registered subscribers.
func (s *Subject[T]) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// ObserveChannel drains ch, delivering each value to observer.OnNext,
// until ch is closed, then calls observer.OnError(terminalErr) if
// terminalErr is non-nil or observer.OnCompleted() otherwise. It runs on
// its own goroutine and returns a Subscription that stops forwarding
// (without closing ch, which the producer owns).
func ObserveChannel[T any](ch <-chan T, terminalErr func() error, observer Observer[T]) Subscription {
	stop := make(chan struct{})
	var stopped atomic.Bool
	go func() {
		for {
			select {
			case v, ok := <-ch:
				if !ok {
					if terminalErr != nil {
						if err := terminalErr(); err != nil {
							observer.OnError(err)
							return
						}
					}
					observer.OnCompleted()
					return
				}
				observer.OnNext(v)
			case <-stop:
				return
			}
		}
	}()
	return subscriptionFunc(func() {
		if stopped.CompareAndSwap(false, true) {
			close(stop)
		}
	})
}
