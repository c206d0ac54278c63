package streamset

// ConnectionStatus reports the lifecycle stage of a connection: Pending
// until the first change set arrives (even an empty one), then Loaded,
// then Errored if the upstream faults.
type ConnectionStatus int

const (
	StatusPending ConnectionStatus = iota
	StatusLoaded
	StatusErrored
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusLoaded:
		return "Loaded"
	case StatusErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// MonitorStatus derives a ConnectionStatus stream from any upstream
// Observable: it emits Pending synchronously on subscribe, Loaded the
// first time the upstream produces a value (even a value representing an
// empty change set — the transition is about delivery, not content), and
// Errored if the upstream calls OnError. It never emits Loaded twice.
func MonitorStatus[T any](source Observable[T]) Observable[ConnectionStatus] {
	return ObservableFunc[ConnectionStatus](func(observer Observer[ConnectionStatus]) Subscription {
		observer.OnNext(StatusPending)
		loaded := false
		sub := source.Subscribe(ObserverFunc[T]{
			Next: func(T) {
				if !loaded {
					loaded = true
					observer.OnNext(StatusLoaded)
				}
			},
			Err: func(err error) {
				observer.OnNext(StatusErrored)
				observer.OnError(err)
			},
			Completed: func() {
				observer.OnCompleted()
			},
		})
		return sub
	})
}
