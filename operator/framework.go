// Package operator implements the incremental operator algebra over
// keyed ChangeSets: filter, transform, sort, group, distinct, page,
// virtualize, expiry, size-limiting, buffering, set-algebra combinators,
// and materialization. Every operator here is a stateful node that
// subscribes to one (or more) upstream ChangeSet observables, maintains
// whatever private projection it needs, and emits its own downstream
// ChangeSet preserving the same coalescing invariants as a source.
package operator

import (
	"sync"

	"github.com/flowbase/streamset"
)

// Processor is the minimal shape every operator implements: given the
// upstream's current Observable, return the operator's own downstream
// Observable. Operators are plain functions of this shape rather than an
// interface hierarchy, so composing them is just nested function calls —
// `Sort(Filter(cache.Connect(), pred), cmp)` — matching the connect()
// chains the rest of the module already builds.
type Processor[In, Out any] func(upstream streamset.Observable[In]) streamset.Observable[Out]

// subscriptionFunc adapts a plain func into a streamset.Subscription for
// operators that need to compose more than one underlying subscription
// (e.g. an upstream subscription plus per-key sub-subscriptions).
type subscriptionFunc func()

func (f subscriptionFunc) Dispose() { f() }

// subscribeUpstream wires an operator's processing function into an
// Observable[Out], handling the common "subscribe upstream, dispose it
// when the downstream subscriber disposes" shape shared by every operator
// in this package. process is called once per upstream value and must
// call emit with whatever it wants to forward downstream (zero or more
// times); state is private to one operator instance, guarded by its own
// lock since independent upstreams (combinators, merge_many) subscribe
// concurrently.
// process returns a non-nil error to terminate the downstream with
// OnError instead of emitting (used by filter/transform when user code
// panics or errors).
func subscribeUpstream[In, Out any](
	upstream streamset.Observable[In],
	process func(value In, emit func(Out)) error,
	onError func(err error, emit func(Out)) error,
	onCompleted func(emit func(Out)),
) streamset.Observable[Out] {
	return streamset.ObservableFunc[Out](func(observer streamset.Observer[Out]) streamset.Subscription {
		var mu sync.Mutex
		terminated := false
		sub := upstream.Subscribe(streamset.ObserverFunc[In]{
			Next: func(v In) {
				mu.Lock()
				if terminated {
					mu.Unlock()
					return
				}
				err := process(v, func(out Out) { observer.OnNext(out) })
				terminated = err != nil
				mu.Unlock()
				if err != nil {
					observer.OnError(err)
				}
			},
			Err: func(err error) {
				mu.Lock()
				defer mu.Unlock()
				if terminated {
					return
				}
				if onError != nil {
					if wrapped := onError(err, func(out Out) { observer.OnNext(out) }); wrapped != nil {
						observer.OnError(wrapped)
						return
					}
					return
				}
				observer.OnError(err)
			},
			Completed: func() {
				mu.Lock()
				defer mu.Unlock()
				if terminated {
					return
				}
				if onCompleted != nil {
					onCompleted(func(out Out) { observer.OnNext(out) })
				}
				observer.OnCompleted()
			},
		})
		return sub
	})
}
