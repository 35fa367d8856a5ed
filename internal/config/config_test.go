package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/varkiosk/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have the kiosk defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.ReplayDuration(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.TelemetryTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.ReferenceWidth, convey.ShouldEqual, 1920)
			convey.So(cfg.ReferenceHeight, convey.ShouldEqual, 1080)
			convey.So(cfg.TelemetryToken, convey.ShouldBeEmpty)
			convey.So(cfg.LeaderboardBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.LeaderboardDefaultLimit, convey.ShouldEqual, 5)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When the backend is written in mixed case", func() {
			cfg.LeaderboardBackend = " SQLite "
			cfg.LeaderboardDSN = "file:kiosk.db"

			convey.Convey("Then it should be normalized", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
				convey.So(cfg.LeaderboardBackend, convey.ShouldEqual, config.BackendSQLite)
			})
		})

		convey.Convey("When a SQL backend has no DSN", func() {
			cfg.LeaderboardBackend = config.BackendPostgres

			convey.Convey("Then validation should fail", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "leaderboard_dsn")
			})
		})

		convey.Convey("When the backend is unknown", func() {
			cfg.LeaderboardBackend = "redis"

			convey.Convey("Then validation should fail", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When numeric settings are out of range", func() {
			broken := []func(*config.Config){
				func(c *config.Config) { c.ReplayDurationMS = 0 },
				func(c *config.Config) { c.ReferenceWidth = 0 },
				func(c *config.Config) { c.ReferenceHeight = -1 },
				func(c *config.Config) { c.TelemetryTimeoutMS = 0 },
				func(c *config.Config) { c.TelemetrySeriesLimit = 0 },
				func(c *config.Config) { c.LeaderboardDefaultLimit = 0 },
				func(c *config.Config) { c.MaxLeaderboardLimit = 2 },
				func(c *config.Config) { c.WriterQueueSize = 0 },
				func(c *config.Config) { c.MaxSessions = 0 },
				func(c *config.Config) { c.FallbackVideoURL = "" },
				func(c *config.Config) { c.Addr = "" },
			}

			convey.Convey("Then each should be rejected", func() {
				for _, mutate := range broken {
					c := config.New(context.Background())
					mutate(c)
					convey.So(errors.Is(c.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				}
			})
		})
	})
}
