package operator

import (
	"sync"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/store"
)

// PageRequest selects a 1-based page of a given size from a sorted
// projection.
type PageRequest struct {
	Page int
	Size int
}

// Page consumes a sorted projection (see Sort) and a stream of page
// requests, emitting Add/Remove/Moved so the downstream view always
// reflects exactly the items currently in the requested window,
// whichever changed more recently: the underlying data or the request.
func Page[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], cmp store.Comparator[T], requests streamset.Observable[PageRequest]) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return windowed(upstream, cmp, requests, func(req PageRequest, total int) (start, count int) {
		if req.Size <= 0 {
			return 0, 0
		}
		start = (req.Page - 1) * req.Size
		if start < 0 {
			start = 0
		}
		return start, req.Size
	})
}

// Range selects an arbitrary zero-based (start, count) window; Virtualize
// is the same shape as Page but addressed by offset instead of page
// number, useful for infinite-scroll-style consumers.
type Range struct {
	Start int
	Count int
}

// Virtualize is Page's offset-addressed counterpart.
func Virtualize[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], cmp store.Comparator[T], requests streamset.Observable[Range]) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return windowed(upstream, cmp, requests, func(req Range, total int) (start, count int) {
		return req.Start, req.Count
	})
}

func windowed[K comparable, T, Req any](
	upstream streamset.Observable[*streamset.ChangeSet[K, T]],
	cmp store.Comparator[T],
	requests streamset.Observable[Req],
	resolve func(req Req, total int) (start, count int),
) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K, T]](func(observer streamset.Observer[*streamset.ChangeSet[K, T]]) streamset.Subscription {
		var mu sync.Mutex
		full := store.NewSorted[K, T](cmp)
		var window []K
		var lastReq Req
		haveReq := false
		dropped := make(map[K]T) // values of keys removed by the change set being applied

		emitWindow := func(newWindow []K) {
			old := make(map[K]int, len(window))
			for i, k := range window {
				old[k] = i
			}
			out := streamset.NewChangeSet[K, T]()
			keep := make(map[K]bool, len(newWindow))
			for i, k := range newWindow {
				keep[k] = true
				if prevIdx, ok := old[k]; ok {
					if prevIdx != i {
						_, v := full.At(fullIndexOf(full, k))
						out.Append(streamset.NewMovedChange(k, v, prevIdx, i))
					}
					continue
				}
				_, v := full.At(fullIndexOf(full, k))
				out.Append(streamset.NewAddChange[K, T](k, v))
			}
			for _, k := range window {
				if !keep[k] {
					v, ok := dropped[k]
					if !ok {
						_, v = full.At(fullIndexOf(full, k))
					}
					out.Append(streamset.NewRemoveChange(k, v))
				}
			}
			window = newWindow
			if !out.Empty() {
				observer.OnNext(out)
			}
		}

		recompute := func() {
			if !haveReq {
				return
			}
			start, count := resolve(lastReq, full.Len())
			newWindow := []K{}
			for i := start; i < start+count && i < full.Len(); i++ {
				if i < 0 {
					continue
				}
				k, _ := full.At(i)
				newWindow = append(newWindow, k)
			}
			emitWindow(newWindow)
		}

		sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				mu.Lock()
				for _, c := range cs.Changes {
					switch c.Reason {
					case streamset.Add, streamset.Update:
						full.Upsert(c.Key, c.Current)
					case streamset.Remove:
						dropped[c.Key] = c.Current
						full.Remove(c.Key)
					}
				}
				recompute()
				clear(dropped)
				mu.Unlock()
			},
			Err:       observer.OnError,
			Completed: observer.OnCompleted,
		})

		reqSub := requests.Subscribe(streamset.ObserverFunc[Req]{
			Next: func(req Req) {
				mu.Lock()
				lastReq, haveReq = req, true
				recompute()
				mu.Unlock()
			},
		})

		return subscriptionFunc(func() {
			sub.Dispose()
			reqSub.Dispose()
		})
	})
}

func fullIndexOf[K comparable, T any](s *store.Sorted[K, T], key K) int {
	return s.IndexOf(key)
}
