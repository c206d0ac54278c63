// Package roster demonstrates composing a source cache with Filter, Sort,
// Transform, and Page into a small reactive view: a raid roster where
// only alive members are shown, ranked by score, ten to a page.
package roster

import (
	"log"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/cache"
	"github.com/flowbase/streamset/operator"
)

// Member is one entry in the roster cache, keyed by MemberID.
type Member struct {
	MemberID string
	Name     string
	Role     string
	Score    int
	Alive    bool
}

// MemberView is what the paginated display actually renders: just the
// fields a roster UI needs, derived from Member by Transform.
type MemberView struct {
	Name  string
	Role  string
	Score int
}

func byScoreDescMember(a, b Member) int   { return b.Score - a.Score }
func byScoreDescView(a, b MemberView) int { return b.Score - a.Score }

// firstPage is a one-shot Observable that emits a single PageRequest and
// then goes quiet; a real UI would instead forward the user's page
// navigation events.
type firstPage struct{ req operator.PageRequest }

func (f firstPage) Subscribe(observer streamset.Observer[operator.PageRequest]) streamset.Subscription {
	observer.OnNext(f.req)
	return noopSubscription{}
}

type noopSubscription struct{}

func (noopSubscription) Dispose() {}

// Example builds a roster cache, layers Filter(alive) -> Sort(by score
// descending) -> Transform(to MemberView) -> Page(10 per page) on top of
// it, and mutates the source a few times to show the derived view track
// the change.
func Example() {
	roster := cache.New[string, Member]()
	defer roster.Close(nil)

	alive := operator.Filter[string, Member](roster.Connect(), func(_ string, m Member) bool {
		return m.Alive
	})

	ranked := operator.Sort[string, Member](alive, byScoreDescMember, nil)

	views := operator.Transform[string, Member, MemberView](ranked, func(_ string, m Member) (MemberView, error) {
		return MemberView{Name: m.Name, Role: m.Role, Score: m.Score}, nil
	})

	paged := operator.Page[string, MemberView](views, byScoreDescView, firstPage{operator.PageRequest{Page: 1, Size: 10}})

	sub := paged.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[string, MemberView]]{
		Next: func(cs *streamset.ChangeSet[string, MemberView]) {
			for _, c := range cs.Changes {
				log.Printf("roster page change: %s %s (score=%d)", c.Reason, c.Current.Name, c.Current.Score)
			}
		},
	})
	defer sub.Dispose()

	_ = roster.AddOrUpdateMany(map[string]Member{
		"m1": {MemberID: "m1", Name: "Aria", Role: "healer", Score: 420, Alive: true},
		"m2": {MemberID: "m2", Name: "Bram", Role: "tank", Score: 610, Alive: true},
		"m3": {MemberID: "m3", Name: "Coen", Role: "dps", Score: 305, Alive: false},
	})

	// Coen survives after all, and Aria drops out of the roster entirely.
	_ = roster.AddOrUpdate("m3", Member{MemberID: "m3", Name: "Coen", Role: "dps", Score: 305, Alive: true})
	_ = roster.Remove("m1")

	log.Printf("roster count: %d", roster.Count())
}
