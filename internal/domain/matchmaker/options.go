package matchmaker

// Option applies a configuration option to the Matchmaker.
type Option func(*Matchmaker)

// WithDiscoveryRounds sets how many judgments are collected before the
// matchmaker switches from uncertainty-driven to rating-driven selection.
func WithDiscoveryRounds(n int) Option {
	return func(m *Matchmaker) {
		if n >= 0 {
			m.discoveryRounds = n
		}
	}
}
