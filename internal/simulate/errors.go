package simulate

import "errors"

// Sentinel errors for the simulator.
var (
	ErrUnhealthy     = errors.New("service is not healthy")
	ErrConflict      = errors.New("pair changed before the choice arrived")
	ErrUnexpected    = errors.New("unexpected response")
	ErrStuck         = errors.New("inferred pair did not resolve")
	ErrRankingTooLow = errors.New("ranking quality below threshold")
)
