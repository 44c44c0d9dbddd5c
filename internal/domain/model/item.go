// Package model contains the domain records shared by the ranking engine,
// its persistence layer and its presentation adapters.
package model

import "slices"

// Initial values for a freshly seeded item.
const (
	DefaultRating      = 1500.0
	DefaultUncertainty = 350.0
)

// Item is one ranked entity.
type Item struct {
	Name        string   `json:"name"`
	Rating      float64  `json:"rating"`
	Uncertainty float64  `json:"uncertainty"`
	MatchCount  int      `json:"match_count"`
	Opponents   []string `json:"opponents"`
	// LegacyScore is display-only; ranking never reads it.
	LegacyScore int `json:"legacy_score"`
}

// NewItem returns an item with default rating and uncertainty.
func NewItem(name string) Item {
	return Item{
		Name:        name,
		Rating:      DefaultRating,
		Uncertainty: DefaultUncertainty,
		Opponents:   []string{},
	}
}

// HasPlayed reports whether name was ever directly compared against it.
func (it Item) HasPlayed(name string) bool {
	return slices.Contains(it.Opponents, name)
}

// Clone returns a deep copy.
func (it Item) Clone() Item {
	c := it
	c.Opponents = slices.Clone(it.Opponents)
	if c.Opponents == nil {
		c.Opponents = []string{}
	}
	return c
}

// Pair is an unordered couple of item names as presented (A left, B right).
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// At returns the name at presentation index 0 or 1.
func (p Pair) At(i int) string {
	if i == 0 {
		return p.A
	}
	return p.B
}

// Same reports whether both pairs hold the same names regardless of order.
func (p Pair) Same(o Pair) bool {
	return (p.A == o.A && p.B == o.B) || (p.A == o.B && p.B == o.A)
}

// Standing is one row of the ranking.
type Standing struct {
	Rank        int     `json:"rank"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	Uncertainty float64 `json:"uncertainty"`
	MatchCount  int     `json:"match_count"`
	LegacyScore int     `json:"legacy_score"`
}
