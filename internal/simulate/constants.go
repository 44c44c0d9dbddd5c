package simulate

import "time"

// Defaults used by cmd/simulate.
const (
	DefaultRounds    = 60
	DefaultTopK      = 5
	DefaultTimeout   = 10 * time.Second
	DefaultPollEvery = 50 * time.Millisecond

	// maxRetries bounds retries of transient HTTP failures.
	maxRetries = 3
	// settleGrace is added to the server's auto-resolve delay while waiting
	// for an inferred pair to resolve.
	settleGrace = 5 * time.Second
)
