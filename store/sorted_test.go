package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byIntAsc(a, b int) int { return a - b }

func TestSortedUpsertKeepsOrder(t *testing.T) {
	s := NewSorted[string, int](byIntAsc)

	_, idx := s.Upsert("a", 5)
	assert.Equal(t, 0, idx)
	_, idx = s.Upsert("b", 1)
	assert.Equal(t, 0, idx, "1 sorts before 5")
	_, idx = s.Upsert("c", 3)
	assert.Equal(t, 1, idx, "3 sorts between 1 and 5")

	assert.Equal(t, []string{"b", "c", "a"}, s.Snapshot())
}

func TestSortedUpsertRepositionsExistingKey(t *testing.T) {
	s := NewSorted[string, int](byIntAsc)
	s.Upsert("a", 1)
	s.Upsert("b", 2)
	s.Upsert("c", 3)

	prev, cur := s.Upsert("a", 10)
	assert.Equal(t, 0, prev)
	assert.Equal(t, 2, cur)
	assert.Equal(t, []string{"b", "c", "a"}, s.Snapshot())
}

func TestSortedRemove(t *testing.T) {
	s := NewSorted[string, int](byIntAsc)
	s.Upsert("a", 1)
	s.Upsert("b", 2)

	idx := s.Remove("a")
	assert.Equal(t, 0, idx)
	assert.Equal(t, -1, s.IndexOf("a"))
	assert.Equal(t, 1, s.Len())

	assert.Equal(t, -1, s.Remove("missing"))
}

func TestSortedResortAfterComparatorChange(t *testing.T) {
	s := NewSorted[string, int](byIntAsc)
	s.Upsert("a", 1)
	s.Upsert("b", 2)
	s.Upsert("c", 3)
	require.Equal(t, []string{"a", "b", "c"}, s.Snapshot())

	s.cmp = func(a, b int) int { return b - a }
	s.Resort()
	assert.Equal(t, []string{"c", "b", "a"}, s.Snapshot())
}
