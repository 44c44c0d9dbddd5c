package model

import "slices"

// Snapshot is the persisted part of a session.
type Snapshot struct {
	Items     []Item     `json:"items"`
	History   []Judgment `json:"history"`
	Conflicts []Conflict `json:"conflicts"`
}

// NewSnapshot seeds a session from an ordered list of names.
func NewSnapshot(names []string) Snapshot {
	items := make([]Item, len(names))
	for i, n := range names {
		items[i] = NewItem(n)
	}
	return Snapshot{Items: items, History: []Judgment{}, Conflicts: []Conflict{}}
}

// Clone returns a deep copy safe to hand outside the session lock.
func (s Snapshot) Clone() Snapshot {
	items := make([]Item, len(s.Items))
	for i, it := range s.Items {
		items[i] = it.Clone()
	}
	history := slices.Clone(s.History)
	if history == nil {
		history = []Judgment{}
	}
	conflicts := slices.Clone(s.Conflicts)
	if conflicts == nil {
		conflicts = []Conflict{}
	}
	return Snapshot{Items: items, History: history, Conflicts: conflicts}
}

// Index maps item names to their position in Items.
func (s Snapshot) Index() map[string]int {
	idx := make(map[string]int, len(s.Items))
	for i, it := range s.Items {
		idx[it.Name] = i
	}
	return idx
}

// Progress summarizes how far the session is toward a converged ranking.
type Progress struct {
	Judgments     int     `json:"judgments"`
	Target        int     `json:"target"`
	Fraction      float64 `json:"fraction"`
	Percent       int     `json:"percent"`
	Encouragement string  `json:"encouragement"`
	ShareUnlocked bool    `json:"share_unlocked"`
}
