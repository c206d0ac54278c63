package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/cache"
)

func TestMergeManySubscribesOnePerPresentKeyAndTagsValues(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	inner := make(map[string]chan int)
	merged := MergeMany[string, int, int](src.Connect(), func(key string, _ int) streamset.Observable[int] {
		ch := make(chan int, 4)
		inner[key] = ch
		return streamset.ObservableFunc[int](func(observer streamset.Observer[int]) streamset.Subscription {
			go func() {
				for v := range ch {
					observer.OnNext(v)
				}
			}()
			return noopSub{}
		})
	})

	var received []MergedValue[string, int]
	sub := merged.Subscribe(streamset.ObserverFunc[MergedValue[string, int]]{
		Next: func(v MergedValue[string, int]) { received = append(received, v) },
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.Contains(t, inner, "a")
	inner["a"] <- 100

	require.Eventually(t, func() bool { return len(received) == 1 }, assertTimeout, assertTick)
	assert.Equal(t, "a", received[0].Key)
	assert.Equal(t, 100, received[0].Value)
}

func TestMergeManyDisposesInnerSubscriptionOnRemove(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	disposed := make(chan struct{}, 1)
	merged := MergeMany[string, int, int](src.Connect(), func(key string, _ int) streamset.Observable[int] {
		return streamset.ObservableFunc[int](func(observer streamset.Observer[int]) streamset.Subscription {
			return subscriptionFunc(func() { disposed <- struct{}{} })
		})
	})

	sub := merged.Subscribe(streamset.ObserverFunc[MergedValue[string, int]]{})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.NoError(t, src.Remove("a"))

	select {
	case <-disposed:
	default:
		t.Fatal("expected the inner subscription to be disposed on Remove")
	}
}
