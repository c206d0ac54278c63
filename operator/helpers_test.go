package operator

import "time"

// assertTimeout/assertTick bound every require.Eventually call in this
// package's tests against goroutine-driven operators.
const (
	assertTimeout = 2 * time.Second
	assertTick    = 5 * time.Millisecond
)
