package streamset

import "sync"

// RefCount shares one upstream subscription among N downstream
// subscribers: the upstream is subscribed on the 0→1 transition and
// disposed on the 1→0 transition; a later subscriber after a 1→0
// transition triggers a fresh upstream subscription (and, for a
// connect()-shaped source, a fresh initial snapshot).
//
// The small lock here only guards membership bookkeeping, never the
// upstream's own processing: it protects the invariants that the
// subscriber count never goes negative, a 0→1 transition subscribes
// exactly once, and a 1→0 transition disposes exactly once.
type RefCount[T any] struct {
	upstream Observable[T]

	mu      sync.Mutex
	count   int
	current *refCountShared[T]
}

type refCountShared[T any] struct {
	sub         Subscription
	subscribers map[int64]Observer[T]
}

// NewRefCount wraps upstream so that Subscribe shares a single upstream
// subscription among all current downstream subscribers.
func NewRefCount[T any](upstream Observable[T]) *RefCount[T] {
	return &RefCount[T]{upstream: upstream}
}

// Subscribe registers observer against the shared upstream subscription,
// creating it if this is the first (0→1) subscriber.
func (r *RefCount[T]) Subscribe(observer Observer[T]) Subscription {
	r.mu.Lock()
	first := r.count == 0
	if first {
		r.current = &refCountShared[T]{subscribers: make(map[int64]Observer[T])}
	}

	shared := r.current
	id := int64(len(shared.subscribers)) // stable within this shared epoch
	for {
		if _, taken := shared.subscribers[id]; !taken {
			break
		}
		id++
	}
	shared.subscribers[id] = observer
	r.count++
	r.mu.Unlock()

	if first {
		// Subscribe to upstream outside the lock: the upstream's own
		// processing must never run while holding RefCount's membership
		// lock, only membership transitions do. The observer is already
		// registered, so a value upstream emits during Subscribe reaches it.
		shared.sub = r.upstream.Subscribe(ObserverFunc[T]{
			Next: func(v T) { r.broadcast(shared, func(o Observer[T]) { o.OnNext(v) }) },
			Err:  func(err error) { r.broadcast(shared, func(o Observer[T]) { o.OnError(err) }) },
			Completed: func() {
				r.broadcast(shared, func(o Observer[T]) { o.OnCompleted() })
			},
		})
	}

	return subscriptionFunc(func() { r.unsubscribe(shared, id) })
}

func (r *RefCount[T]) broadcast(shared *refCountShared[T], fn func(Observer[T])) {
	r.mu.Lock()
	observers := make([]Observer[T], 0, len(shared.subscribers))
	for _, o := range shared.subscribers {
		observers = append(observers, o)
	}
	r.mu.Unlock()
	for _, o := range observers {
		fn(o)
	}
}

func (r *RefCount[T]) unsubscribe(shared *refCountShared[T], id int64) {
	r.mu.Lock()
	if shared != r.current {
		r.mu.Unlock()
		return
	}
	if _, ok := shared.subscribers[id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(shared.subscribers, id)
	r.count--
	var toDispose Subscription
	if r.count == 0 {
		toDispose = shared.sub
		r.current = nil
	}
	r.mu.Unlock()

	if toDispose != nil {
		toDispose.Dispose()
	}
}

// Subscribers returns the number of currently active downstream
// subscribers sharing the upstream connection.
func (r *RefCount[T]) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
