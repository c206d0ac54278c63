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

// TestBatchIfWithPause exercises BatchIf under pause the same way BufferIf
// is exercised: no change sets observed while paused even as a minute of
// scheduler time passes, one coalesced Add once unpaused, and a further
// unpaused AddOrUpdate passing straight through as its own batch.
func TestBatchIfWithPause(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	pause := make(chan bool, 1)
	mock := clock.NewMock()
	sched := streamset.NewSchedulerWithClock(mock)
	batched := BatchIf[string, int](src.Connect(), channelPause(pause), sched, 0, 0)

	var batches []*streamset.ChangeSet[string, int]
	sub := batched.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, int]]{
		Next: func(cs *streamset.ChangeSet[string, int]) { batches = append(batches, cs) },
	})
	defer sub.Dispose()

	pause <- true
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, src.AddOrUpdate("a", 1))
	time.Sleep(10 * time.Millisecond)
	mock.Add(time.Minute)
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, batches, "paused for a minute of scheduler time: zero change sets observed")

	pause <- false
	require.Eventually(t, func() bool { return len(batches) == 1 }, assertTimeout, assertTick)
	require.Len(t, batches[0].Changes, 1)
	assert.Equal(t, streamset.Add, batches[0].Changes[0].Reason)
	assert.Equal(t, "a", batches[0].Changes[0].Key)

	require.NoError(t, src.AddOrUpdate("b", 1))
	require.Eventually(t, func() bool { return len(batches) == 2 }, assertTimeout, assertTick)
	require.Len(t, batches[1].Changes, 1)
	assert.Equal(t, streamset.Add, batches[1].Changes[0].Reason)
	assert.Equal(t, "b", batches[1].Changes[0].Key)
}
