package streamset

import "github.com/gammazero/chanqueue"

// KeyTap is the per-key watch point behind SourceCache.WatchKey: unlike
// the default Subject, which drops the newest value once a slow
// subscriber's channel fills, a KeyTap buffers unboundedly via
// gammazero/chanqueue. A single key's change history is low-cardinality
// by construction (one subscriber watching one key, rarely more), so
// correctness of that one stream matters more than the bounded-memory
// guarantee Subject trades for it at collection scale.
type KeyTap[T any] struct {
	q *chanqueue.Queue[T]
}

// NewKeyTap returns an empty KeyTap.
func NewKeyTap[T any]() *KeyTap[T] {
	return &KeyTap[T]{q: chanqueue.New[T]()}
}

// Publish enqueues value for every current and future reader; chanqueue
// grows to hold it rather than blocking or dropping.
func (k *KeyTap[T]) Publish(value T) {
	k.q.In() <- value
}

// Subscribe returns the tap's output channel and a Subscription that
// closes this KeyTap. A KeyTap supports a single logical reader: its
// queue is drained by whichever goroutine ranges over Out().
func (k *KeyTap[T]) Subscribe() (<-chan T, Subscription) {
	return k.q.Out(), subscriptionFunc(func() { k.q.Close() })
}

// Close shuts down the tap; pending buffered values already enqueued are
// still delivered, then Out() closes.
func (k *KeyTap[T]) Close() {
	k.q.Close()
}
