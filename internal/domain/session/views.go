package session

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/pairrank/internal/domain/model"
)

// exportMinItems is the smallest item count worth exporting.
const exportMinItems = 3

// Ranking returns the items ordered by rating, highest first. Equal ratings
// keep catalog order.
func (c *Controller) Ranking() []model.Standing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ranking()
}

func (c *Controller) ranking() []model.Standing {
	order := make([]int, len(c.snap.Items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return c.snap.Items[order[x]].Rating > c.snap.Items[order[y]].Rating
	})

	out := make([]model.Standing, len(order))
	for rank, i := range order {
		it := c.snap.Items[i]
		out[rank] = model.Standing{
			Rank:        rank + 1,
			Name:        it.Name,
			Rating:      it.Rating,
			Uncertainty: it.Uncertainty,
			MatchCount:  it.MatchCount,
			LegacyScore: it.LegacyScore,
		}
	}
	return out
}

// ProgressFraction returns min(1, judgments / progress target).
func (c *Controller) ProgressFraction() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fraction()
}

func (c *Controller) fraction() float64 {
	return math.Min(1, float64(len(c.snap.History))/float64(c.progressTarget))
}

// Progress returns the progress view shown alongside the ranking.
func (c *Controller) Progress() model.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress()
}

func (c *Controller) progress() model.Progress {
	n := len(c.snap.History)
	f := c.fraction()
	pct := int(math.Floor(f * 100))
	return model.Progress{
		Judgments:     n,
		Target:        c.progressTarget,
		Fraction:      f,
		Percent:       pct,
		Encouragement: c.catalog.Encouragement(n),
		ShareUnlocked: pct >= DefaultSharePercent,
	}
}

// Export renders the ranking as a numbered list under the catalog title.
// It reports false when there are too few items to be worth sharing.
func (c *Controller) Export() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.snap.Items) < exportMinItems {
		return "", false
	}

	var b strings.Builder
	b.WriteString(c.catalog.Title)
	b.WriteString(":")
	for _, s := range c.ranking() {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(s.Rank))
		b.WriteString(". ")
		b.WriteString(s.Name)
	}
	return b.String(), true
}
