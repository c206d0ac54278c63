package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/cache"
)

func TestQueryWhenChangedEmitsFullSnapshotEachTime(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	snapshots := QueryWhenChanged[string, int](src.Connect())

	var last map[string]int
	sub := snapshots.Subscribe(streamset.ObserverFunc[map[string]int]{
		Next: func(m map[string]int) { last = m },
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	assert.Equal(t, map[string]int{"a": 1}, last)

	require.NoError(t, src.AddOrUpdate("b", 2))
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, last)

	require.NoError(t, src.Remove("a"))
	assert.Equal(t, map[string]int{"b": 2}, last)
}

func TestDistinctValuesTracksRefCountedMembership(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	distinct := DistinctValues[string, int, int](src.Connect(), func(_ string, v int) int { return v % 2 })

	present := make(map[int]bool)
	sub := distinct.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[int, int]]{
		Next: func(cs *streamset.ChangeSet[int, int]) {
			for _, c := range cs.Changes {
				switch c.Reason {
				case streamset.Add:
					present[c.Key] = true
				case streamset.Remove:
					delete(present, c.Key)
				}
			}
		},
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.NoError(t, src.AddOrUpdate("b", 3)) // also odd, shares the distinct value
	assert.True(t, present[1])
	assert.False(t, present[0])

	require.NoError(t, src.Remove("a"))
	assert.True(t, present[1], "still held by b")

	require.NoError(t, src.Remove("b"))
	assert.False(t, present[1])
}
