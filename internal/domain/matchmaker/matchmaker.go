// Package matchmaker chooses the next pair to present and decides whether the
// preference graph already implies its outcome.
package matchmaker

import (
	"math"
	"sort"
	"strings"

	"github.com/okian/pairrank/internal/domain/model"
)

// DefaultDiscoveryRounds is the number of judgments spent on discovery.
const DefaultDiscoveryRounds = 10

// Selection phases.
const (
	PhaseDiscovery  = "discovery"
	PhaseRefinement = "refinement"
	PhaseRematch    = "rematch"
)

// Selection is the outcome of Select.
type Selection struct {
	Pair       model.Pair
	Rematch    bool
	Phase      string
	Candidates int
}

// Reacher answers chain queries over recorded wins.
type Reacher interface {
	Path(a, b string) []string
}

// Matchmaker implements the two-phase selection policy.
type Matchmaker struct {
	discoveryRounds int
}

// New creates a Matchmaker.
func New(opts ...Option) *Matchmaker {
	m := &Matchmaker{discoveryRounds: DefaultDiscoveryRounds}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type candidate struct {
	a, b *model.Item
}

// Select picks the next pair from items. judgments is the history length and
// previous, when non-nil, is the pair shown last.
func (m *Matchmaker) Select(items []model.Item, judgments int, previous *model.Pair) (Selection, error) {
	if len(items) < 2 {
		return Selection{}, ErrNotEnoughItems
	}

	var pool []candidate
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			if !items[i].HasPlayed(items[j].Name) {
				pool = append(pool, candidate{a: &items[i], b: &items[j]})
			}
		}
	}

	var sel Selection
	if len(pool) > 0 {
		if judgments < m.discoveryRounds {
			sel.Phase = PhaseDiscovery
			sort.SliceStable(pool, func(x, y int) bool {
				return pool[x].a.Uncertainty+pool[x].b.Uncertainty > pool[y].a.Uncertainty+pool[y].b.Uncertainty
			})
		} else {
			sel.Phase = PhaseRefinement
			sort.SliceStable(pool, func(x, y int) bool {
				return math.Abs(pool[x].a.Rating-pool[x].b.Rating) < math.Abs(pool[y].a.Rating-pool[y].b.Rating)
			})
		}
		sel.Pair = model.Pair{A: pool[0].a.Name, B: pool[0].b.Name}
	} else {
		ranked := make([]*model.Item, len(items))
		for i := range items {
			ranked[i] = &items[i]
		}
		sort.SliceStable(ranked, func(x, y int) bool { return ranked[x].Rating > ranked[y].Rating })
		sel.Phase = PhaseRematch
		sel.Rematch = true
		sel.Pair = model.Pair{A: ranked[0].Name, B: ranked[1].Name}
	}
	sel.Candidates = len(pool)

	if previous != nil && sel.Pair.Same(*previous) && len(pool) > 1 {
		sel.Pair = model.Pair{A: pool[1].a.Name, B: pool[1].b.Name}
	}
	return sel, nil
}

// Infer reports the outcome implied by r for p, if exactly one ordering is
// reachable.
func (m *Matchmaker) Infer(r Reacher, p model.Pair) (model.Inference, bool) {
	ab := r.Path(p.A, p.B)
	ba := r.Path(p.B, p.A)

	switch {
	case ab != nil && ba == nil:
		return inference(0, p.A, p.B, ab), true
	case ba != nil && ab == nil:
		return inference(1, p.B, p.A, ba), true
	default:
		return model.Inference{}, false
	}
}

func inference(idx int, winner, loser string, chain []string) model.Inference {
	return model.Inference{
		WinnerIndex: idx,
		Winner:      winner,
		Loser:       loser,
		Chain:       chain,
		Reason:      "Logic: " + strings.Join(chain, " > "),
	}
}
