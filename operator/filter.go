package operator

import (
	"context"

	"github.com/flowbase/streamset"
)

// Predicate reports whether key/value currently belongs in a filtered
// projection.
type Predicate[K comparable, T any] func(key K, value T) bool

// Filter maintains the subset of upstream currently matching predicate,
// translating every incoming Change against its own "currently included"
// bookkeeping:
//
//   - Add/Update that newly matches emits Add; that stops matching after
//     having matched emits Remove; that matches both before and after
//     emits Update; that never matches is dropped silently.
//   - Remove for a key that matched emits Remove; otherwise dropped.
//   - Refresh is re-evaluated against predicate exactly like Update.
//
// A panic or error from predicate is wrapped as a streamset.PredicateError
// and propagated as OnError to every downstream subscriber.
//
// opts optionally selects a ParallelMode for running predicate across one
// ChangeSet's changes (see WithParallelism); the default, Ordered, matches
// Filter's original sequential behaviour. Predicate evaluation may run
// concurrently, but the "currently included" bookkeeping that decides
// Add/Update/Remove is always applied afterward in the order runFanOut
// returns, which is safe because a ChangeSet never carries two changes
// for the same key.
func Filter[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], predicate Predicate[K, T], opts ...ParallelOption) streamset.Observable[*streamset.ChangeSet[K, T]] {
	included := make(map[K]bool)
	cfg := resolveParallelConfig(opts)

	safePredicate := func(key K, value T) (matched bool, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &streamset.PredicateError[K]{Key: key, Err: panicToError(r)}
			}
		}()
		return predicate(key, value), nil
	}

	type evaluated struct {
		change  streamset.Change[K, T]
		matches bool
	}

	return subscribeUpstream[*streamset.ChangeSet[K, T], *streamset.ChangeSet[K, T]](
		upstream,
		func(cs *streamset.ChangeSet[K, T], emit func(*streamset.ChangeSet[K, T])) error {
			evals, err := runFanOut(context.Background(), cfg, len(cs.Changes), func(_ context.Context, i int) (evaluated, error) {
				c := cs.Changes[i]
				if c.Reason == streamset.Remove {
					return evaluated{change: c}, nil
				}
				matches, err := safePredicate(c.Key, c.Current)
				if err != nil {
					return evaluated{}, err
				}
				return evaluated{change: c, matches: matches}, nil
			})
			if err != nil {
				return err
			}

			out := streamset.NewChangeSet[K, T]()
			for _, e := range evals {
				c := e.change
				switch c.Reason {
				case streamset.Add, streamset.Update, streamset.Refresh:
					wasIncluded := included[c.Key]
					switch {
					case e.matches && !wasIncluded:
						included[c.Key] = true
						out.Append(streamset.NewAddChange[K, T](c.Key, c.Current))
					case !e.matches && wasIncluded:
						delete(included, c.Key)
						out.Append(streamset.NewRemoveChange(c.Key, c.Current))
					case e.matches && wasIncluded && c.Reason == streamset.Update:
						out.Append(c)
					case e.matches && wasIncluded && c.Reason == streamset.Refresh:
						out.Append(c)
					}
				case streamset.Remove:
					if included[c.Key] {
						delete(included, c.Key)
						out.Append(c)
					}
				}
			}
			if !out.Empty() {
				emit(out)
			}
			return nil
		},
		nil,
		nil,
	)
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicValue{r}
}

type panicValue struct{ v any }

func (p *panicValue) Error() string { return "panic: " + toString(p.v) }

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "non-string panic value"
}
