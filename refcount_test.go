package streamset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefCountSharesOneUpstreamSubscription(t *testing.T) {
	subscribeCount := 0
	upstream := ObservableFunc[int](func(observer Observer[int]) Subscription {
		subscribeCount++
		observer.OnNext(1)
		return subscriptionFunc(func() {})
	})

	rc := NewRefCount[int](upstream)

	var got1, got2 []int
	s1 := rc.Subscribe(ObserverFunc[int]{Next: func(v int) { got1 = append(got1, v) }})
	s2 := rc.Subscribe(ObserverFunc[int]{Next: func(v int) { got2 = append(got2, v) }})

	assert.Equal(t, 1, subscribeCount, "a second subscriber should share the existing upstream subscription")
	assert.Equal(t, 2, rc.Subscribers())
	assert.Equal(t, []int{1}, got1, "only the first subscriber was registered when upstream fired synchronously")
	assert.Empty(t, got2, "the second subscriber joined after the one-shot emission already happened")

	s1.Dispose()
	assert.Equal(t, 1, rc.Subscribers())
	s2.Dispose()
	assert.Equal(t, 0, rc.Subscribers())
}

func TestRefCountResubscribesAfterDroppingToZero(t *testing.T) {
	subscribeCount := 0
	var disposed Subscription
	upstream := ObservableFunc[int](func(observer Observer[int]) Subscription {
		subscribeCount++
		return subscriptionFunc(func() {})
	})
	_ = disposed

	rc := NewRefCount[int](upstream)
	s1 := rc.Subscribe(ObserverFunc[int]{})
	s1.Dispose()
	assert.Equal(t, 0, rc.Subscribers())

	rc.Subscribe(ObserverFunc[int]{})
	assert.Equal(t, 2, subscribeCount, "a fresh subscriber after 1->0 should trigger a new upstream subscription")

	time.Sleep(time.Millisecond) // let any async teardown settle before test exit
}
