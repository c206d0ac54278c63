package operator

import (
	"time"

	"github.com/flowbase/streamset"
)

// BatchIf is BufferIf under the name the size/time-driven operator family
// uses for it elsewhere: while pause's most recent value is true, every
// upstream ChangeSet is accumulated rather than forwarded, and flushed as
// one coalesced ChangeSet when pause transitions to false (or timeout/
// interval fires — see BufferIf for the full contract). There is no
// behavioural difference between the two names; BatchIf exists so callers
// reaching for either name find the operator.
func BatchIf[K comparable, T any](
	upstream streamset.Observable[*streamset.ChangeSet[K, T]],
	pause streamset.Observable[bool],
	scheduler streamset.Scheduler,
	timeout time.Duration,
	interval time.Duration,
) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return BufferIf(upstream, pause, scheduler, timeout, interval)
}
