// Package rating implements the per-comparison rating update: an Elo-style
// expectation with a K factor scaled by decision confidence and by the
// combined uncertainty of both items.
package rating

import (
	"math"

	"github.com/okian/pairrank/internal/domain/model"
)

// Default model parameters.
const (
	DefaultKBase               = 40.0
	DefaultConfidentMultiplier = 1.5
	DefaultInferredMultiplier  = 0.5
	DefaultMinUncertainty      = 50.0
	DefaultUncertaintyDecay    = 0.95

	// uncertaintyScale normalizes the summed uncertainties so that two fresh
	// items keep the configured K unchanged.
	uncertaintyScale = 2 * model.DefaultUncertainty
	eloSpread        = 400.0
)

// Outcome reports what a single Apply did.
type Outcome struct {
	Delta    float64
	Expected float64
	K        float64
}

// Model holds the rating parameters. It has no mutable state and is safe for
// concurrent use.
type Model struct {
	kBase               float64
	confidentMultiplier float64
	inferredMultiplier  float64
	minUncertainty      float64
	uncertaintyDecay    float64
}

// New creates a Model with defaults overridden by opts.
func New(opts ...Option) *Model {
	m := &Model{
		kBase:               DefaultKBase,
		confidentMultiplier: DefaultConfidentMultiplier,
		inferredMultiplier:  DefaultInferredMultiplier,
		minUncertainty:      DefaultMinUncertainty,
		uncertaintyDecay:    DefaultUncertaintyDecay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MinUncertainty returns the configured floor.
func (m *Model) MinUncertainty() float64 { return m.minUncertainty }

// Expected returns the probability that winner beats loser given their
// current ratings.
func Expected(winner, loser float64) float64 {
	return 1 / (1 + math.Pow(10, (loser-winner)/eloSpread))
}

// Apply updates both items in place for a resolved comparison. The rating
// change is zero-sum and computed from pre-update values.
func (m *Model) Apply(winner, loser *model.Item, confident, inferred bool) Outcome {
	k := m.kBase
	if confident {
		k *= m.confidentMultiplier
	}
	if inferred {
		k *= m.inferredMultiplier
	}
	k *= (winner.Uncertainty + loser.Uncertainty) / uncertaintyScale

	expected := Expected(winner.Rating, loser.Rating)
	delta := k * (1 - expected)

	winner.Rating += delta
	loser.Rating -= delta
	winner.Uncertainty = m.decay(winner.Uncertainty)
	loser.Uncertainty = m.decay(loser.Uncertainty)

	return Outcome{Delta: delta, Expected: expected, K: k}
}

func (m *Model) decay(u float64) float64 {
	return math.Max(m.minUncertainty, u*m.uncertaintyDecay)
}
