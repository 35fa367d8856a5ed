package scoring

import "errors"

// ErrInvalidCoordinates is returned when a click cannot be normalized.
var ErrInvalidCoordinates = errors.New("invalid click coordinates")
