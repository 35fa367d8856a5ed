package simulator

import (
	"errors"
	"fmt"
)

// Sentinel kinds for simulator errors.
var (
	ErrNotSorted      = errors.New("leaderboard not sorted by accuracy")
	ErrFreezeTimeout  = errors.New("session did not freeze in time")
	ErrNotApplied     = errors.New("transition not applied")
	ErrSessionLimited = errors.New("session limit reached")
	ErrInvalidConfig  = errors.New("invalid simulator config")
)

// StatusError reports an unexpected HTTP status from the server.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Status, e.Body)
}
