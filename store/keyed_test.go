package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedBasicOperations(t *testing.T) {
	k := NewKeyed[string, int]()

	_, ok := k.Get("a")
	assert.False(t, ok)

	k.Set("a", 1)
	v, ok := k.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, k.Has("a"))
	assert.Equal(t, 1, k.Len())

	k.Set("a", 2)
	v, _ = k.Get("a")
	assert.Equal(t, 2, v, "Set overwrites the existing entry")

	k.Delete("a")
	assert.False(t, k.Has("a"))
	assert.Equal(t, 0, k.Len())

	k.Delete("a") // no-op on a missing key
}

func TestKeyedSnapshotIsACopy(t *testing.T) {
	k := NewKeyed[string, int]()
	k.Set("a", 1)

	snap := k.Snapshot()
	snap["a"] = 99
	v, _ := k.Get("a")
	assert.Equal(t, 1, v, "mutating the snapshot must not affect the store")
}

func TestKeyedClear(t *testing.T) {
	k := NewKeyed[string, int]()
	k.Set("a", 1)
	k.Set("b", 2)
	k.Clear()
	assert.Equal(t, 0, k.Len())
	assert.Empty(t, k.Keys())
}
