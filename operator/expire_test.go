package operator

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/cache"
)

func TestExpireAfterRemovesOnceTTLElapses(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	mock := clock.NewMock()
	sched := streamset.NewSchedulerWithClock(mock)

	sub := ExpireAfter[string, int](src.Connect(), func(_ string, _ int) (time.Duration, bool) {
		return 100 * time.Millisecond, true
	}, sched, src)
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.Eventually(t, func() bool { _, ok := src.Lookup("a"); return ok }, assertTimeout, assertTick)

	mock.Add(100 * time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := src.Lookup("a")
		return !ok
	}, assertTimeout, assertTick)
}

func TestExpireAfterUpdateReschedulesTimer(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	mock := clock.NewMock()
	sched := streamset.NewSchedulerWithClock(mock)

	sub := ExpireAfter[string, int](src.Connect(), func(_ string, _ int) (time.Duration, bool) {
		return 100 * time.Millisecond, true
	}, sched, src)
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.Eventually(t, func() bool { _, ok := src.Lookup("a"); return ok }, assertTimeout, assertTick)

	mock.Add(60 * time.Millisecond)
	require.NoError(t, src.AddOrUpdate("a", 2)) // resets the 100ms window

	mock.Add(60 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	_, ok := src.Lookup("a")
	assert.True(t, ok, "update should have reset the timer so 60ms after it hasn't expired yet")

	mock.Add(100 * time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := src.Lookup("a")
		return !ok
	}, assertTimeout, assertTick)
}

func TestExpireAfterRemoveCancelsPendingTimer(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	mock := clock.NewMock()
	sched := streamset.NewSchedulerWithClock(mock)

	sub := ExpireAfter[string, int](src.Connect(), func(_ string, _ int) (time.Duration, bool) {
		return 50 * time.Millisecond, true
	}, sched, src)
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.Eventually(t, func() bool { _, ok := src.Lookup("a"); return ok }, assertTimeout, assertTick)
	require.NoError(t, src.Remove("a"))

	mock.Add(50 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, src.Count())
}
