package streamset

import "github.com/cskr/pubsub"

// countTopic is the single topic every CountBus publishes on; a bus is
// already scoped to one source, so there is no need for per-subscriber
// topic partitioning the way watch(key) needs one topic per key.
const countTopic = "count"

// CountBus broadcasts a source collection's current item count to
// subscribers of its count-changed stream. Unlike Subject[T], which needs
// a bounded per-subscriber channel and an explicit drop-and-log policy,
// a count is a coalescing scalar — a subscriber that misses an
// intermediate value only needs the latest one, so the constant-topic
// broadcast that cskr/pubsub.PubSub already provides fits directly
// without a custom channel per subscriber.
type CountBus struct {
	ps *pubsub.PubSub
}

// NewCountBus returns a CountBus with the given per-subscriber channel
// capacity.
func NewCountBus(capacity int) *CountBus {
	if capacity <= 0 {
		capacity = 1
	}
	return &CountBus{ps: pubsub.New(capacity)}
}

// Subscribe registers a new listener and returns its channel along with a
// Subscription that unregisters it.
func (b *CountBus) Subscribe() (<-chan int, Subscription) {
	raw := b.ps.Sub(countTopic)
	out := make(chan int, cap(raw))
	go func() {
		defer close(out)
		for v := range raw {
			out <- v.(int)
		}
	}()
	return out, subscriptionFunc(func() { b.ps.Unsub(raw, countTopic) })
}

// Publish broadcasts the current count to all subscribers.
func (b *CountBus) Publish(count int) {
	b.ps.Pub(count, countTopic)
}

// Close shuts the bus down, closing every subscriber channel.
func (b *CountBus) Close() {
	b.ps.Shutdown()
}
