package service

import (
	"time"

	"github.com/okian/varkiosk/internal/adapters/repository"
	"github.com/okian/varkiosk/internal/domain/scoring"
	"github.com/okian/varkiosk/internal/domain/session"
	"github.com/okian/varkiosk/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProvider sets the event source used for new rounds.
func WithProvider(p session.EventSource) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithStore sets the leaderboard store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithQueueSize sets the maximum number of pending leaderboard writes.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxSessions bounds concurrently open sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithLeaderboardLimits sets the default and maximum TopN sizes.
func WithLeaderboardLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 && maxLimit >= defaultLimit {
			s.defaultLimit = defaultLimit
			s.maxLimit = maxLimit
		}
	}
}

// WithReplayDuration sets how long each round replays before freezing.
func WithReplayDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.replay = d
		}
	}
}

// WithResolution sets the kiosk display size used to normalize clicks.
func WithResolution(r scoring.Resolution) Option {
	return func(s *Service) {
		if r.Width > 0 && r.Height > 0 {
			s.resolution = r
		}
	}
}

// WithClock replaces the replay timer clock, mainly for tests.
func WithClock(c session.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithShareBaseURL enables share links on result views.
func WithShareBaseURL(u string) Option {
	return func(s *Service) {
		s.shareBaseURL = u
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
