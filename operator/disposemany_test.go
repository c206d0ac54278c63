package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbase/streamset/cache"
)

func TestDisposeOnRemoveFiresForRemoveAndSupersededUpdate(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	var disposed []int
	sub := DisposeOnRemove[string, int](src.Connect(), func(_ string, v int) { disposed = append(disposed, v) })
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	assert.Empty(t, disposed, "Add never disposes")

	require.NoError(t, src.AddOrUpdate("a", 2))
	require.Len(t, disposed, 1)
	assert.Equal(t, 1, disposed[0], "the superseded previous value is disposed, not the new one")

	require.NoError(t, src.Remove("a"))
	require.Len(t, disposed, 2)
	assert.Equal(t, 2, disposed[1])
}
