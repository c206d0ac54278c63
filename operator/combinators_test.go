package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/cache"
)

func applyAndCollect(t *testing.T, combined streamset.Observable[*streamset.ChangeSet[string, int]]) map[string]int {
	t.Helper()
	current := make(map[string]int)
	sub := combined.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, int]]{
		Next: func(cs *streamset.ChangeSet[string, int]) {
			for _, c := range cs.Changes {
				switch c.Reason {
				case streamset.Add, streamset.Update:
					current[c.Key] = c.Current
				case streamset.Remove:
					delete(current, c.Key)
				}
			}
		},
	})
	t.Cleanup(sub.Dispose)
	return current
}

func TestAndEmitsOnlyKeysInEverySource(t *testing.T) {
	a := cache.New[string, int]()
	b := cache.New[string, int]()
	defer a.Close(nil)
	defer b.Close(nil)

	current := applyAndCollect(t, And[string, int](a.Connect(), b.Connect()))

	require.NoError(t, a.AddOrUpdate("x", 1))
	assert.Empty(t, current)

	require.NoError(t, b.AddOrUpdate("x", 2))
	assert.Equal(t, 2, current["x"], "And takes the value from the highest-index source holding the key")

	require.NoError(t, a.Remove("x"))
	assert.Empty(t, current)
}

func TestOrEmitsUnionAndRemovesOnlyWhenAllGone(t *testing.T) {
	a := cache.New[string, int]()
	b := cache.New[string, int]()
	defer a.Close(nil)
	defer b.Close(nil)

	current := applyAndCollect(t, Or[string, int](a.Connect(), b.Connect()))

	require.NoError(t, a.AddOrUpdate("x", 1))
	assert.Equal(t, 1, current["x"])

	require.NoError(t, b.AddOrUpdate("x", 2))
	assert.Equal(t, 2, current["x"])

	require.NoError(t, a.Remove("x"))
	assert.Contains(t, current, "x", "still held by b")

	require.NoError(t, b.Remove("x"))
	assert.NotContains(t, current, "x")
}

func TestXorEmitsOnlyKeysInExactlyOneSource(t *testing.T) {
	a := cache.New[string, int]()
	b := cache.New[string, int]()
	defer a.Close(nil)
	defer b.Close(nil)

	current := applyAndCollect(t, Xor[string, int](a.Connect(), b.Connect()))

	require.NoError(t, a.AddOrUpdate("x", 1))
	assert.Contains(t, current, "x")

	require.NoError(t, b.AddOrUpdate("x", 2))
	assert.NotContains(t, current, "x", "now present in both, so excluded by xor")

	require.NoError(t, a.Remove("x"))
	assert.Contains(t, current, "x", "back to exactly one holder")
}

func TestExceptIsAsymmetricFirstMinusRest(t *testing.T) {
	a := cache.New[string, int]()
	b := cache.New[string, int]()
	defer a.Close(nil)
	defer b.Close(nil)

	current := applyAndCollect(t, Except[string, int](a.Connect(), b.Connect()))

	require.NoError(t, b.AddOrUpdate("x", 9))
	assert.NotContains(t, current, "x", "b alone never contributes candidates")

	require.NoError(t, a.AddOrUpdate("x", 1))
	assert.NotContains(t, current, "x", "x is in both, so excluded")

	require.NoError(t, b.Remove("x"))
	assert.Equal(t, 1, current["x"], "now only in the first source")
}
