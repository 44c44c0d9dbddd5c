package matchmaker

import "errors"

// ErrNotEnoughItems is returned when fewer than two items are available.
var ErrNotEnoughItems = errors.New("matchmaker: at least two items are required")
