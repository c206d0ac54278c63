package operator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/cache"
)

func TestRetransformAllRecomputesEveryKeyOnTrigger(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	trigger := make(chan struct{}, 1)
	triggerObs := streamset.ObservableFunc[struct{}](func(observer streamset.Observer[struct{}]) streamset.Subscription {
		go func() {
			for v := range trigger {
				observer.OnNext(v)
			}
		}()
		return noopSub{}
	})

	multiplier := 10
	retransformed := RetransformAll[string, int, int](src.Connect(), func(_ string, v int) (int, error) {
		return v * multiplier, nil
	}, triggerObs, 2)

	current := make(map[string]int)
	sub := retransformed.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, int]]{
		Next: func(cs *streamset.ChangeSet[string, int]) {
			for _, c := range cs.Changes {
				current[c.Key] = c.Current
			}
		},
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.NoError(t, src.AddOrUpdate("b", 2))

	multiplier = 100
	trigger <- struct{}{}

	require.Eventually(t, func() bool { return current["a"] == 100 && current["b"] == 200 }, assertTimeout, assertTick)
}

func TestRetransformSelectedOnlyRecomputesNamedKeys(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	trigger := make(chan []string, 1)
	triggerObs := streamset.ObservableFunc[[]string](func(observer streamset.Observer[[]string]) streamset.Subscription {
		go func() {
			for v := range trigger {
				observer.OnNext(v)
			}
		}()
		return noopSub{}
	})

	multiplier := 10
	retransformed := RetransformSelected[string, int, int](src.Connect(), func(_ string, v int) (int, error) {
		return v * multiplier, nil
	}, triggerObs, 2)

	current := make(map[string]int)
	sub := retransformed.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, int]]{
		Next: func(cs *streamset.ChangeSet[string, int]) {
			for _, c := range cs.Changes {
				current[c.Key] = c.Current
			}
		},
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.NoError(t, src.AddOrUpdate("b", 2))

	multiplier = 100
	trigger <- []string{"a", "missing"}

	require.Eventually(t, func() bool { return current["a"] == 100 }, assertTimeout, assertTick)
	time.Sleep(20 * time.Millisecond)
	assert.NotEqual(t, 200, current["b"], "b was not named by the trigger so it keeps its old value")
}
