package streamset

import "fmt"

// ReduceKeyed coalesces an ordered sequence of raw per-key changes
// produced within a single edit transaction into the minimum-fidelity
// ChangeSet. existed reports whether a key
// was present in the collection before the transaction began; it is
// consulted only for a key whose first change in the sequence is a
// Remove (the "— (none) / Remove" row).
//
// Reason is deliberately restricted to Add/Update/Remove/Refresh: Moved
// changes are produced by order-aware operators outside the mutator API
// and never participate in transaction coalescing.
func ReduceKeyed[K comparable, T any](changes []Change[K, T], existed func(K) bool) (*ChangeSet[K, T], error) {
	type slot struct {
		acc    Change[K, T]
		hasAcc bool
	}
	acc := make(map[K]*slot)
	order := make([]K, 0, len(changes))

	for _, next := range changes {
		if next.Reason == Moved {
			return nil, fmt.Errorf("streamset: Moved change not valid as mutator input for key %v", next.Key)
		}
		s, ok := acc[next.Key]
		if !ok {
			s = &slot{}
			acc[next.Key] = s
			order = append(order, next.Key)
		}
		if !s.hasAcc {
			merged, keep := combineNone(next, existed)
			s.acc, s.hasAcc = merged, keep
			continue
		}
		merged, keep, err := combine(s.acc, next)
		if err != nil {
			return nil, err
		}
		s.acc, s.hasAcc = merged, keep
	}

	result := NewChangeSet[K, T]()
	for _, k := range order {
		s := acc[k]
		if !s.hasAcc {
			continue
		}
		result.Append(s.acc)
	}
	return result, nil
}

// combineNone handles the first change seen for a key since its
// accumulator was last empty (either the start of the transaction, or
// after a prior Add+Remove cancellation for the same key).
func combineNone[K comparable, T any](next Change[K, T], existed func(K) bool) (Change[K, T], bool) {
	switch next.Reason {
	case Add:
		return next, true
	case Update:
		// none,Update -> Add. The editor never actually produces
		// this combination directly (an Update implies the key already
		// existed), but the reducer is also reused to coalesce buffered
		// ChangeSets (BufferIf/BatchIf) where the downstream baseline may
		// differ from the upstream's.
		return NewAddChange[K, T](next.Key, next.Current), true
	case Remove:
		if existed != nil && existed(next.Key) {
			return next, true
		}
		return next, false
	case Refresh:
		return next, true
	default:
		return next, true
	}
}

// combine folds next into the pending accumulated change acc for a key.
func combine[K comparable, T any](acc, next Change[K, T]) (Change[K, T], bool, error) {
	if acc.Reason == Refresh {
		// Refresh is weaker than any other reason: next wins outright.
		return next, true, nil
	}

	switch acc.Reason {
	case Add:
		switch next.Reason {
		case Add, Update:
			return NewAddChange[K, T](acc.Key, next.Current), true, nil
		case Remove:
			return acc, false, nil // cancels
		case Refresh:
			return acc, true, nil
		}
	case Update:
		switch next.Reason {
		case Add:
			return NewAddChange[K, T](acc.Key, next.Current), true, nil
		case Update:
			return NewUpdateChange[K, T](acc.Key, acc.Previous, next.Current), true, nil
		case Remove:
			return NewRemoveChange[K, T](acc.Key, acc.Previous), true, nil
		case Refresh:
			return acc, true, nil
		}
	case Remove:
		switch next.Reason {
		case Add:
			return NewUpdateChange[K, T](acc.Key, acc.Current, next.Current), true, nil
		case Update:
			return acc, false, &CoalesceConflictError[K]{Key: acc.Key}
		case Remove:
			return acc, true, nil
		case Refresh:
			return acc, true, nil
		}
	}
	return next, true, nil
}
