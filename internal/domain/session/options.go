package session

import (
	"time"

	"github.com/okian/varkiosk/internal/domain/scoring"
	"github.com/okian/varkiosk/pkg/logger"
)

// Option applies a configuration option to a Session.
type Option func(*Session)

// WithID sets the session id. A random uuid is used otherwise.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithClock replaces the clock used for the replay timer.
func WithClock(c Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithReplayDuration sets how long a round stays in PLAYING.
func WithReplayDuration(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.replay = d
		}
	}
}

// WithResolution sets the reference display clicks are normalized against.
func WithResolution(r scoring.Resolution) Option {
	return func(s *Session) {
		if r.Width > 0 && r.Height > 0 {
			s.resolution = r
		}
	}
}

// WithLogger sets a custom logger for the session.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}
