package streamset

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across cache, list, and operator packages.
var (
	// ErrClosed is returned by any operation attempted on a disposed
	// source or operator.
	ErrClosed = errors.New("streamset: source is closed")

	// ErrNotFound describes a lookup for a key that is not present.
	// SourceCache.Lookup does not return it; it reports absence through
	// its boolean result.
	ErrNotFound = errors.New("streamset: key not found")

	// ErrIndexOutOfRange is matched (via errors.Is) by the
	// IndexOutOfRangeError a positional list Editor method returns when
	// its index falls outside the current bounds. The failing call records
	// no change and leaves the list as it was; changes made by earlier
	// calls in the same Edit stay applied and are still published.
	ErrIndexOutOfRange = errors.New("streamset: index out of range")

	// ErrDisposedAfterTerminal describes a mutation attempted on a source
	// after it has already emitted OnError or OnCompleted to its
	// subscribers. SourceCache and SourceList do not return it: once
	// closed, their Edit returns ErrClosed.
	ErrDisposedAfterTerminal = errors.New("streamset: mutation ignored, source already terminated")
)

// PredicateError wraps a panic or error raised from caller-supplied
// predicate code inside Filter. By default it propagates to
// downstream subscribers as OnError; filter_on_property/filter_on_observable
// share the same wrapping.
type PredicateError[K comparable] struct {
	Key K
	Err error
}

func (e *PredicateError[K]) Error() string {
	return fmt.Sprintf("streamset: predicate failed for key %v: %v", e.Key, e.Err)
}

func (e *PredicateError[K]) Unwrap() error { return e.Err }

// TransformError wraps an error raised from a caller-supplied transform
// function inside Transform. transform_safe catches this instead of
// propagating it and routes it to a user error sink.
type TransformError[K comparable] struct {
	Key K
	Err error
}

func (e *TransformError[K]) Error() string {
	return fmt.Sprintf("streamset: transform failed for key %v: %v", e.Key, e.Err)
}

func (e *TransformError[K]) Unwrap() error { return e.Err }

// MutationError wraps an error ReduceKeyed reports while SourceCache.Edit
// coalesces a transaction (for example a *CoalesceConflictError). It is
// never emitted to subscribers; it is returned to the edit caller only,
// and the source's state is left unchanged. List bounds violations are
// reported as IndexOutOfRangeError, not MutationError.
type MutationError struct {
	Err error
}

func (e *MutationError) Error() string { return fmt.Sprintf("streamset: edit failed: %v", e.Err) }

func (e *MutationError) Unwrap() error { return e.Err }

// NewMutationError wraps err as a MutationError, or returns nil if err is nil.
func NewMutationError(err error) error {
	if err == nil {
		return nil
	}
	return &MutationError{Err: err}
}

// CoalesceConflictError reports an illegal sequence of primitive changes
// for the same key within one edit transaction — currently only an
// Update issued against a key already marked Remove earlier in the same
// transaction.
type CoalesceConflictError[K comparable] struct {
	Key K
}

func (e *CoalesceConflictError[K]) Error() string {
	return fmt.Sprintf("streamset: illegal Update after Remove for key %v in one transaction", e.Key)
}

// IndexOutOfRangeError carries the offending index and the collection's
// bound at the time of the attempted mutation.
type IndexOutOfRangeError struct {
	Index, Length int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("streamset: index %d out of range for length %d", e.Index, e.Length)
}

func (e *IndexOutOfRangeError) Is(target error) bool { return target == ErrIndexOutOfRange }

// NewIndexOutOfRangeError constructs an IndexOutOfRangeError.
func NewIndexOutOfRangeError(index, length int) error {
	return &IndexOutOfRangeError{Index: index, Length: length}
}
