package operator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/cache"
)

func TestTransformMapsEveryReason(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	doubled := Transform[string, int, int](src.Connect(), func(_ string, v int) (int, error) { return v * 2, nil })

	var received []streamset.Change[string, int]
	sub := doubled.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, int]]{
		Next: func(cs *streamset.ChangeSet[string, int]) { received = append(received, cs.Changes...) },
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.NoError(t, src.AddOrUpdate("a", 2))
	require.NoError(t, src.Remove("a"))

	require.Len(t, received, 3)
	assert.Equal(t, 2, received[0].Current)
	assert.Equal(t, 4, received[1].Current)
	assert.Equal(t, 2, received[1].Previous)
	assert.Equal(t, 4, received[2].Current)
}

func TestTransformSafeRoutesErrorsAndRemovesOnFailure(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	boom := errors.New("boom")
	var sinkErrs []error
	safe := TransformSafe[string, int, int](src.Connect(), func(_ string, v int) (int, error) {
		if v < 0 {
			return 0, boom
		}
		return v, nil
	}, func(err error) { sinkErrs = append(sinkErrs, err) })

	var received []streamset.Change[string, int]
	sub := safe.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, int]]{
		Next: func(cs *streamset.ChangeSet[string, int]) { received = append(received, cs.Changes...) },
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.Len(t, received, 1)
	assert.Equal(t, streamset.Add, received[0].Reason)

	require.NoError(t, src.AddOrUpdate("a", -1))
	require.Len(t, sinkErrs, 1)
	require.Len(t, received, 2)
	assert.Equal(t, streamset.Remove, received[1].Reason, "a failing re-transform on a present key removes it downstream")
}

func TestTransformAsyncAppliesCompletionsInEnqueueOrder(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	delays := map[int]time.Duration{1: 30 * time.Millisecond, 2: 5 * time.Millisecond}
	async := TransformAsync[string, int, int](context.Background(), src.Connect(), func(ctx context.Context, key string, value int) streamset.Deferred[int] {
		return streamset.Go[int](ctx, func(ctx context.Context) (int, error) {
			time.Sleep(delays[value])
			return value, nil
		})
	})

	var received []int
	done := make(chan struct{})
	sub := async.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, int]]{
		Next: func(cs *streamset.ChangeSet[string, int]) {
			for _, c := range cs.Changes {
				received = append(received, c.Current)
				if len(received) == 2 {
					close(done)
				}
			}
		},
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdate("a", 1))
	require.NoError(t, src.AddOrUpdate("a", 2))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for both completions")
	}
	assert.Equal(t, []int{1, 2}, received, "completion for value 2 must wait behind the earlier-enqueued value 1")
}

// TestTransformParallelOrderedMatchesSequentialResult confirms
// ParallelOrdered, like the default Ordered mode, transforms every change
// of a batch processed concurrently, by checking the count and the sum of
// the results; the order of the changes is not checked.
func TestTransformParallelOrderedMatchesSequentialResult(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	doubled := Transform[string, int, int](src.Connect(), func(_ string, v int) (int, error) { return v * 2, nil },
		WithParallelism(ParallelOrdered, 3))

	var received []streamset.Change[string, int]
	sub := doubled.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, int]]{
		Next: func(cs *streamset.ChangeSet[string, int]) { received = append(received, cs.Changes...) },
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdateMany(map[string]int{"a": 1, "b": 2, "c": 3}))
	require.Len(t, received, 3)
	total := 0
	for _, c := range received {
		total += c.Current
	}
	assert.Equal(t, 12, total) // (1+2+3)*2
}

// TestTransformParallelPropagatesFnError confirms a per-item error still
// terminates the stream with OnError under a parallel mode.
func TestTransformParallelPropagatesFnError(t *testing.T) {
	src := cache.New[string, int]()
	defer src.Close(nil)

	boom := errors.New("boom")
	transformed := Transform[string, int, int](src.Connect(), func(_ string, v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v, nil
	}, WithParallelism(ParallelUnordered, 2))

	var gotErr error
	sub := transformed.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, int]]{
		Err: func(err error) { gotErr = err },
	})
	defer sub.Dispose()

	require.NoError(t, src.AddOrUpdateMany(map[string]int{"a": 1, "b": 2}))
	require.Error(t, gotErr)
	assert.ErrorIs(t, gotErr, boom)
}
