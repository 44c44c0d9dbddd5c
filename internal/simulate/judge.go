package simulate

import (
	"math/rand"
	"time"

	"github.com/okian/pairrank/internal/domain/model"
)

// Judge answers comparisons from a hidden total order, occasionally
// answering against it.
type Judge struct {
	rank  map[string]int
	truth []string
	noise float64
	rng   *rand.Rand

	minLatency time.Duration
	maxLatency time.Duration
}

// NewJudge shuffles names into a hidden order using seed.
func NewJudge(names []string, noise float64, seed int64) *Judge {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // simulation only
	truth := append([]string(nil), names...)
	rng.Shuffle(len(truth), func(i, j int) { truth[i], truth[j] = truth[j], truth[i] })
	return newJudge(truth, noise, rng)
}

// NewJudgeWithOrder uses truth, best first, as the hidden order.
func NewJudgeWithOrder(truth []string, noise float64, seed int64) *Judge {
	return newJudge(append([]string(nil), truth...), noise, rand.New(rand.NewSource(seed))) //nolint:gosec // simulation only
}

func newJudge(truth []string, noise float64, rng *rand.Rand) *Judge {
	rank := make(map[string]int, len(truth))
	for i, n := range truth {
		rank[n] = i
	}
	return &Judge{rank: rank, truth: truth, noise: noise, rng: rng}
}

// WithLatency sets the think time range used by ThinkTime.
func (j *Judge) WithLatency(minLatency, maxLatency time.Duration) *Judge {
	j.minLatency, j.maxLatency = minLatency, maxLatency
	return j
}

// Truth returns the hidden order, best first.
func (j *Judge) Truth() []string {
	return append([]string(nil), j.truth...)
}

// Decide returns the index of the preferred item and whether the answer
// went against the hidden order.
func (j *Judge) Decide(p model.Pair) (index int, flipped bool) {
	index = 1
	if j.rank[p.A] < j.rank[p.B] {
		index = 0
	}
	if j.noise > 0 && j.rng.Float64() < j.noise {
		return 1 - index, true
	}
	return index, false
}

// ThinkTime returns a simulated decision latency.
func (j *Judge) ThinkTime() time.Duration {
	if j.maxLatency <= j.minLatency {
		return j.minLatency
	}
	return j.minLatency + time.Duration(j.rng.Int63n(int64(j.maxLatency-j.minLatency)))
}
