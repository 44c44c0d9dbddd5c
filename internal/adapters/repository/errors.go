package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrNotFound       = errors.New("no saved session")
	ErrCorrupt        = errors.New("saved session is corrupt")
	ErrClosed         = errors.New("store is closed")
	ErrUnknownBackend = errors.New("unknown store backend")
)
