package streamset

// Observer is the minimal push-observer contract consumed throughout this
// module: a value sink with the standard one-error-or-completion
// terminal rule — once OnError or OnCompleted is called, no further calls
// are made.
type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnCompleted()
}

// ObserverFunc adapts three plain functions into an Observer. A nil
// Next, Err or Completed is treated as a no-op.
type ObserverFunc[T any] struct {
	Next      func(T)
	Err       func(error)
	Completed func()
}

func (o ObserverFunc[T]) OnNext(value T) {
	if o.Next != nil {
		o.Next(value)
	}
}

func (o ObserverFunc[T]) OnError(err error) {
	if o.Err != nil {
		o.Err(err)
	}
}

func (o ObserverFunc[T]) OnCompleted() {
	if o.Completed != nil {
		o.Completed()
	}
}

// Subscription is the handle Observable.Subscribe returns; Dispose stops
// delivery to that observer. See Disposable in disposable.go for the
// error-returning and composite forms used by operators.
type Subscription interface {
	Dispose()
}

// subscriptionFunc adapts a plain func into a Subscription.
type subscriptionFunc func()

func (f subscriptionFunc) Dispose() { f() }

// Observable is a subscribable stream of T. Subscribe returns a
// Subscription; disposing it must stop further delivery to that observer
// without affecting other subscribers.
type Observable[T any] interface {
	Subscribe(observer Observer[T]) Subscription
}

// ObservableFunc adapts a plain subscribe function into an Observable.
type ObservableFunc[T any] func(observer Observer[T]) Subscription

func (f ObservableFunc[T]) Subscribe(observer Observer[T]) Subscription { return f(observer) }

// Subscribe is sugar for constructing an ObserverFunc on the fly.
func Subscribe[T any](o Observable[T], next func(T), onError func(error), onCompleted func()) Subscription {
	return o.Subscribe(ObserverFunc[T]{Next: next, Err: onError, Completed: onCompleted})
}
