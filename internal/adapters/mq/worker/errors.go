package worker

import "errors"

// Sentinel kinds for writer errors.
var (
	ErrBackpressure = errors.New("leaderboard writer is saturated")
	ErrStopped      = errors.New("leaderboard writer stopped")
)
