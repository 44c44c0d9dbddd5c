package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/okian/pairrank/internal/domain/model"
)

// stateRecord is the persisted layout. Item fields that older saves may lack
// are pointers so that absence can be told apart from zero.
type stateRecord struct {
	Items     []itemRecord     `json:"items"`
	History   []model.Judgment `json:"history"`
	Conflicts []model.Conflict `json:"conflicts"`
}

type itemRecord struct {
	Name        string   `json:"name"`
	Rating      *float64 `json:"rating,omitempty"`
	Uncertainty *float64 `json:"uncertainty,omitempty"`
	MatchCount  int      `json:"match_count"`
	Opponents   []string `json:"opponents"`
	LegacyScore int      `json:"legacy_score"`
}

func encodeSnapshot(snap model.Snapshot) ([]byte, error) {
	rec := stateRecord{
		Items:     make([]itemRecord, len(snap.Items)),
		History:   snap.History,
		Conflicts: snap.Conflicts,
	}
	for i, it := range snap.Items {
		r, u := it.Rating, it.Uncertainty
		rec.Items[i] = itemRecord{
			Name:        it.Name,
			Rating:      &r,
			Uncertainty: &u,
			MatchCount:  it.MatchCount,
			Opponents:   it.Opponents,
			LegacyScore: it.LegacyScore,
		}
	}
	if rec.History == nil {
		rec.History = []model.Judgment{}
	}
	if rec.Conflicts == nil {
		rec.Conflicts = []model.Conflict{}
	}
	return json.Marshal(rec)
}

// decodeSnapshot parses a saved session and fills missing item fields.
// Uncertainty below floor is raised to it so later decay never increases
// it. It returns the number of items that needed migration.
func decodeSnapshot(data []byte, floor float64) (model.Snapshot, int, error) {
	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Snapshot{}, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(rec.Items) == 0 {
		return model.Snapshot{}, 0, fmt.Errorf("%w: no items", ErrCorrupt)
	}

	snap := model.Snapshot{
		Items:     make([]model.Item, len(rec.Items)),
		History:   rec.History,
		Conflicts: rec.Conflicts,
	}
	seen := make(map[string]struct{}, len(rec.Items))
	migrated := 0
	for i, r := range rec.Items {
		if strings.TrimSpace(r.Name) == "" {
			return model.Snapshot{}, 0, fmt.Errorf("%w: item %d has no name", ErrCorrupt, i)
		}
		if _, dup := seen[r.Name]; dup {
			return model.Snapshot{}, 0, fmt.Errorf("%w: duplicate item %q", ErrCorrupt, r.Name)
		}
		seen[r.Name] = struct{}{}

		it := model.NewItem(r.Name)
		it.MatchCount = r.MatchCount
		it.LegacyScore = r.LegacyScore
		touched := false
		if r.Rating != nil {
			if !finite(*r.Rating) {
				return model.Snapshot{}, 0, fmt.Errorf("%w: item %q has rating %v", ErrCorrupt, r.Name, *r.Rating)
			}
			it.Rating = *r.Rating
		} else {
			touched = true
		}
		if r.Uncertainty != nil {
			u := *r.Uncertainty
			if !finite(u) || u < 0 {
				return model.Snapshot{}, 0, fmt.Errorf("%w: item %q has uncertainty %v", ErrCorrupt, r.Name, u)
			}
			if u < floor {
				u, touched = floor, true
			}
			it.Uncertainty = u
		} else {
			touched = true
		}
		if r.Opponents != nil {
			it.Opponents = r.Opponents
		} else {
			touched = true
		}
		if touched {
			migrated++
		}
		snap.Items[i] = it
	}

	for _, j := range snap.History {
		_, w := seen[j.Winner]
		_, l := seen[j.Loser]
		if !w || !l {
			return model.Snapshot{}, 0, fmt.Errorf("%w: judgment %s references unknown items", ErrCorrupt, j.ID)
		}
	}
	if snap.History == nil {
		snap.History = []model.Judgment{}
	}
	if snap.Conflicts == nil {
		snap.Conflicts = []model.Conflict{}
	}
	return snap, migrated, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
