package catalog

import "errors"

// ErrInvalidCatalog is returned when a catalog document cannot be used.
var ErrInvalidCatalog = errors.New("invalid catalog")
