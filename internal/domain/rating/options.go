package rating

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithKBase sets the base K factor.
func WithKBase(k float64) Option {
	return func(m *Model) {
		if k > 0 {
			m.kBase = k
		}
	}
}

// WithConfidentMultiplier sets the K multiplier for fast human decisions.
func WithConfidentMultiplier(x float64) Option {
	return func(m *Model) {
		if x > 0 {
			m.confidentMultiplier = x
		}
	}
}

// WithInferredMultiplier sets the K multiplier for transitively resolved pairs.
func WithInferredMultiplier(x float64) Option {
	return func(m *Model) {
		if x > 0 {
			m.inferredMultiplier = x
		}
	}
}

// WithMinUncertainty sets the uncertainty floor.
func WithMinUncertainty(floor float64) Option {
	return func(m *Model) {
		if floor >= 0 {
			m.minUncertainty = floor
		}
	}
}

// WithUncertaintyDecay sets the per-comparison uncertainty decay factor.
// Values outside (0, 1] are ignored.
func WithUncertaintyDecay(decay float64) Option {
	return func(m *Model) {
		if decay > 0 && decay <= 1 {
			m.uncertaintyDecay = decay
		}
	}
}
