// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/varkiosk/internal/adapters/media"
)

// Supported leaderboard backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ReplayDurationMS is how long a round stays in PLAYING before the frame freezes.
	ReplayDurationMS int `koanf:"replay_duration_ms"`

	// ReferenceWidth and ReferenceHeight are the kiosk display size used to normalize clicks.
	ReferenceWidth  float64 `koanf:"reference_width"`
	ReferenceHeight float64 `koanf:"reference_height"`

	// Telemetry source. An empty endpoint or token disables the live fetch.
	TelemetryEndpoint    string `koanf:"telemetry_endpoint"`
	TelemetryToken       string `koanf:"telemetry_token"`
	TelemetryTitle       string `koanf:"telemetry_title"`
	TelemetryTimeoutMS   int    `koanf:"telemetry_timeout_ms"`
	TelemetrySeriesLimit int    `koanf:"telemetry_series_limit"`

	// FallbackVideoURL is served for demo frames and unknown media ids.
	FallbackVideoURL string `koanf:"fallback_video_url"`

	// MediaAssets maps frame or series ids to playable URLs.
	MediaAssets map[string]string `koanf:"media_assets"`

	// LeaderboardBackend is one of memory, sqlite, postgres.
	LeaderboardBackend string `koanf:"leaderboard_backend"`

	// LeaderboardDSN is the database source for the sqlite and postgres backends.
	LeaderboardDSN string `koanf:"leaderboard_dsn"`

	// LeaderboardDefaultLimit is used when GET /leaderboard has no limit.
	LeaderboardDefaultLimit int `koanf:"leaderboard_default_limit"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// WriterQueueSize bounds pending leaderboard writes.
	WriterQueueSize int `koanf:"writer_queue_size"`

	// MaxSessions bounds concurrently open kiosk sessions.
	MaxSessions int `koanf:"max_sessions"`

	// ShareBaseURL, when set, adds a share link to result views.
	ShareBaseURL string `koanf:"share_base_url"`

	// RandomSeed seeds event selection. Zero seeds from the clock.
	RandomSeed int64 `koanf:"random_seed"`
}

// New returns a Config populated with defaults. The context is reserved for
// future loaders and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		ReplayDurationMS:        2000,
		ReferenceWidth:          1920,
		ReferenceHeight:         1080,
		TelemetryEndpoint:       "https://api-op.grid.gg/central-data/graphql",
		TelemetryTitle:          "valorant",
		TelemetryTimeoutMS:      5000,
		TelemetrySeriesLimit:    10,
		FallbackVideoURL:        media.DefaultFallbackURL,
		MediaAssets:             map[string]string{},
		LeaderboardBackend:      BackendMemory,
		LeaderboardDefaultLimit: 5,
		MaxLeaderboardLimit:     100,
		WriterQueueSize:         1024,
		MaxSessions:             64,
	}
}

// ReplayDuration returns the replay phase length.
func (c *Config) ReplayDuration() time.Duration {
	return time.Duration(c.ReplayDurationMS) * time.Millisecond
}

// TelemetryTimeout returns the live fetch deadline.
func (c *Config) TelemetryTimeout() time.Duration {
	return time.Duration(c.TelemetryTimeoutMS) * time.Millisecond
}

// Validate checks the configuration and normalizes enum-like fields.
func (c *Config) Validate() error {
	c.LeaderboardBackend = strings.ToLower(strings.TrimSpace(c.LeaderboardBackend))

	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ReplayDurationMS <= 0:
		return fmt.Errorf("%w: replay_duration_ms must be positive", ErrInvalidConfig)
	case c.ReferenceWidth <= 0 || c.ReferenceHeight <= 0:
		return fmt.Errorf("%w: reference resolution must be positive", ErrInvalidConfig)
	case c.TelemetryTimeoutMS <= 0:
		return fmt.Errorf("%w: telemetry_timeout_ms must be positive", ErrInvalidConfig)
	case c.TelemetrySeriesLimit <= 0:
		return fmt.Errorf("%w: telemetry_series_limit must be positive", ErrInvalidConfig)
	case c.FallbackVideoURL == "":
		return fmt.Errorf("%w: fallback_video_url must not be empty", ErrInvalidConfig)
	case c.LeaderboardDefaultLimit < 1:
		return fmt.Errorf("%w: leaderboard_default_limit must be at least 1", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < c.LeaderboardDefaultLimit:
		return fmt.Errorf("%w: max_leaderboard_limit must be >= leaderboard_default_limit", ErrInvalidConfig)
	case c.WriterQueueSize <= 0:
		return fmt.Errorf("%w: writer_queue_size must be positive", ErrInvalidConfig)
	case c.MaxSessions <= 0:
		return fmt.Errorf("%w: max_sessions must be positive", ErrInvalidConfig)
	}

	switch c.LeaderboardBackend {
	case BackendMemory:
	case BackendSQLite, BackendPostgres:
		if c.LeaderboardDSN == "" {
			return fmt.Errorf("%w: leaderboard_dsn is required for the %s backend", ErrInvalidConfig, c.LeaderboardBackend)
		}
	default:
		return fmt.Errorf("%w: unknown leaderboard_backend %q", ErrInvalidConfig, c.LeaderboardBackend)
	}
	return nil
}
