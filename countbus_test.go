package streamset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountBusBroadcastsLatestToEverySubscriber(t *testing.T) {
	b := NewCountBus(2)

	ch1, sub1 := b.Subscribe()
	ch2, sub2 := b.Subscribe()
	defer sub1.Dispose()
	defer sub2.Dispose()

	b.Publish(3)

	assert.Equal(t, 3, <-ch1)
	assert.Equal(t, 3, <-ch2)
}

func TestCountBusCloseClosesSubscriberChannels(t *testing.T) {
	b := NewCountBus(2)
	ch, _ := b.Subscribe()

	b.Close()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
