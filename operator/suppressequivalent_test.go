package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/cache"
)

func TestSuppressEquivalentUpdatesDowngradesNoOpWrites(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	suppressed := SuppressEquivalentUpdates[string, int](src.Connect())

	var reasons []streamset.Reason
	sub := suppressed.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, int]]{
		Next: func(cs *streamset.ChangeSet[string, int]) {
			for _, c := range cs.Changes {
				reasons = append(reasons, c.Reason)
			}
		},
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.NoError(t, src.AddOrUpdate("a", 1)) // identical value re-written
	require.NoError(t, src.AddOrUpdate("a", 2)) // genuinely different

	require.Len(t, reasons, 3)
	assert.Equal(t, streamset.Add, reasons[0])
	assert.Equal(t, streamset.Refresh, reasons[1], "writing an equivalent value downgrades to Refresh")
	assert.Equal(t, streamset.Update, reasons[2])
}
