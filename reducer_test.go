package streamset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysExisted(string) bool { return true }
func neverExisted(string) bool  { return false }

func TestReduceKeyedAddThenRemoveCancels(t *testing.T) {
	cs, err := ReduceKeyed([]Change[string, int]{
		NewAddChange("a", 1),
		NewRemoveChange("a", 1),
	}, neverExisted)
	require.NoError(t, err)
	assert.True(t, cs.Empty())
}

func TestReduceKeyedTwoUpdatesCollapseKeepingOriginalPrevious(t *testing.T) {
	cs, err := ReduceKeyed([]Change[string, int]{
		NewUpdateChange("a", 1, 2),
		NewUpdateChange("a", 2, 3),
	}, alwaysExisted)
	require.NoError(t, err)
	require.Equal(t, 1, cs.Len())
	c := cs.Changes[0]
	assert.Equal(t, Update, c.Reason)
	assert.Equal(t, 1, c.Previous)
	assert.Equal(t, 3, c.Current)
}

func TestReduceKeyedUpdateAfterRemoveIsIllegal(t *testing.T) {
	_, err := ReduceKeyed([]Change[string, int]{
		NewRemoveChange("a", 1),
		NewUpdateChange("a", 1, 2),
	}, alwaysExisted)
	assert.Error(t, err)
}

func TestReduceKeyedRemoveThenAddBecomesUpdate(t *testing.T) {
	cs, err := ReduceKeyed([]Change[string, int]{
		NewRemoveChange("a", 1),
		NewAddChange("a", 2),
	}, alwaysExisted)
	require.NoError(t, err)
	require.Equal(t, 1, cs.Len())
	c := cs.Changes[0]
	assert.Equal(t, Update, c.Reason)
	assert.Equal(t, 1, c.Previous)
	assert.Equal(t, 2, c.Current)
}

func TestReduceKeyedRefreshIsWeakerThanAnyFollowingChange(t *testing.T) {
	cs, err := ReduceKeyed([]Change[string, int]{
		NewRefreshChange("a", 1),
		NewUpdateChange("a", 1, 2),
	}, alwaysExisted)
	require.NoError(t, err)
	require.Equal(t, 1, cs.Len())
	assert.Equal(t, Update, cs.Changes[0].Reason)
}

func TestReduceKeyedMovedIsRejected(t *testing.T) {
	_, err := ReduceKeyed([]Change[string, int]{
		NewMovedChange("a", 1, 0, 1),
	}, alwaysExisted)
	assert.Error(t, err)
}

func TestReduceKeyedPreservesFirstSeenOrderAcrossKeys(t *testing.T) {
	cs, err := ReduceKeyed([]Change[string, int]{
		NewAddChange("b", 2),
		NewAddChange("a", 1),
	}, neverExisted)
	require.NoError(t, err)
	require.Equal(t, 2, cs.Len())
	assert.Equal(t, "b", cs.Changes[0].Key)
	assert.Equal(t, "a", cs.Changes[1].Key)
}
