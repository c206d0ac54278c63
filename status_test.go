package streamset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorStatusTransitionsPendingThenLoaded(t *testing.T) {
	source := ObservableFunc[int](func(observer Observer[int]) Subscription {
		observer.OnNext(1)
		observer.OnNext(2)
		return subscriptionFunc(func() {})
	})

	var statuses []ConnectionStatus
	sub := MonitorStatus[int](source).Subscribe(ObserverFunc[ConnectionStatus]{
		Next: func(s ConnectionStatus) { statuses = append(statuses, s) },
	})
	defer sub.Dispose()

	require.Equal(t, []ConnectionStatus{StatusPending, StatusLoaded}, statuses, "Loaded must fire only once, on the first delivery")
}

func TestMonitorStatusReportsErrored(t *testing.T) {
	boom := errors.New("boom")
	source := ObservableFunc[int](func(observer Observer[int]) Subscription {
		observer.OnError(boom)
		return subscriptionFunc(func() {})
	})

	var statuses []ConnectionStatus
	var gotErr error
	sub := MonitorStatus[int](source).Subscribe(ObserverFunc[ConnectionStatus]{
		Next: func(s ConnectionStatus) { statuses = append(statuses, s) },
		Err:  func(err error) { gotErr = err },
	})
	defer sub.Dispose()

	assert.Equal(t, []ConnectionStatus{StatusPending, StatusErrored}, statuses)
	assert.Equal(t, boom, gotErr)
}
