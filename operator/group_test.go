package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/cache"
)

func TestGroupOnBucketsByComputedKey(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	grouped := GroupOn[string, int, string](src.Connect(), func(_ string, v int) string {
		if v%2 == 0 {
			return "even"
		}
		return "odd"
	})

	groups := make(map[string]*Group[string, int, string])
	sub := grouped.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, *Group[string, int, string]]]{
		Next: func(cs *streamset.ChangeSet[string, *Group[string, int, string]]) {
			for _, c := range cs.Changes {
				switch c.Reason {
				case streamset.Add:
					groups[c.Key] = c.Current
				case streamset.Remove:
					delete(groups, c.Key)
				}
			}
		},
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.NoError(t, src.AddOrUpdate("b", 2))
	require.NoError(t, src.AddOrUpdate("c", 3))

	require.Contains(t, groups, "odd")
	require.Contains(t, groups, "even")
	assert.Equal(t, 2, groups["odd"].Cache.Count())
	assert.Equal(t, 1, groups["even"].Cache.Count())
}

func TestGroupOnMovesItemBetweenGroupsAndDropsEmptyGroup(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	grouped := GroupOn[string, int, string](src.Connect(), func(_ string, v int) string {
		if v%2 == 0 {
			return "even"
		}
		return "odd"
	})

	var removedOuter []string
	groups := make(map[string]*Group[string, int, string])
	sub := grouped.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, *Group[string, int, string]]]{
		Next: func(cs *streamset.ChangeSet[string, *Group[string, int, string]]) {
			for _, c := range cs.Changes {
				switch c.Reason {
				case streamset.Add:
					groups[c.Key] = c.Current
				case streamset.Remove:
					delete(groups, c.Key)
					removedOuter = append(removedOuter, c.Key)
				}
			}
		},
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1)) // odd
	require.NoError(t, src.AddOrUpdate("a", 2)) // moves to even

	assert.Contains(t, removedOuter, "odd", "the odd group emptied out and should be dropped")
	require.Contains(t, groups, "even")
	assert.NotContains(t, groups, "odd")
	assert.Equal(t, 1, groups["even"].Cache.Count())
}
