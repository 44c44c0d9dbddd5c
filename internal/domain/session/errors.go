package session

import "errors"

// Sentinel errors returned by the Controller.
var (
	ErrInvalidChoice = errors.New("winner index must be 0 or 1")
	ErrAutoResolving = errors.New("current pair is being resolved automatically")
	ErrStalePair     = errors.New("presentation is no longer current")
	ErrUnknownItem   = errors.New("unknown item")
	ErrNoPair        = errors.New("no pair is being presented")
)
