package repository

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrInvalidEntry   = errors.New("invalid leaderboard entry")
	ErrInvalidLimit   = errors.New("invalid leaderboard limit")
	ErrClosed         = errors.New("leaderboard store closed")
	ErrUnknownDialect = errors.New("unknown sql dialect")
)
