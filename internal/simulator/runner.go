package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/varkiosk/pkg/logger"
)

// Default run settings.
const (
	DefaultPlayers       = 4
	DefaultRounds        = 3
	DefaultTopN          = 50
	DefaultTimeout       = 10 * time.Second
	DefaultPollInterval  = 100 * time.Millisecond
	DefaultFreezeTimeout = 30 * time.Second
	DefaultWidth         = 1920
	DefaultHeight        = 1080

	worldClassGrade = "world_class"
)

// Runner executes a simulation.
type Runner struct {
	cfg    Config
	client *Client
	log    logger.Logger
}

// NewRunner validates cfg, fills defaults and returns a runner.
func NewRunner(cfg Config, log logger.Logger) (*Runner, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if cfg.Players <= 0 {
		cfg.Players = DefaultPlayers
	}
	if cfg.Rounds <= 0 {
		cfg.Rounds = DefaultRounds
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.FreezeTimeout <= 0 {
		cfg.FreezeTimeout = DefaultFreezeTimeout
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = DefaultWidth, DefaultHeight
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if log == nil {
		log = logger.Get().Named("simulator")
	}
	return &Runner{cfg: cfg, client: NewClient(cfg.BaseURL, cfg.Timeout), log: log}, nil
}

// Run checks the service, plays every round, then verifies the leaderboard.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{Players: r.cfg.Players, StartTime: time.Now()}

	r.log.Info(ctx, "starting kiosk simulation",
		logger.String("baseURL", r.cfg.BaseURL),
		logger.Int("players", r.cfg.Players),
		logger.Int("rounds", r.cfg.Rounds),
		logger.Duration("timeout", r.cfg.Timeout),
	)

	if err := r.client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	r.playAll(ctx, stats)

	entries, err := r.client.Leaderboard(ctx, r.cfg.TopN)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(entries)
	if err := VerifyLeaderboard(entries); err != nil {
		return stats, fmt.Errorf("leaderboard verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	r.logStats(ctx, stats)
	return stats, nil
}

// playAll runs one goroutine per player and folds results into stats.
func (r *Runner) playAll(ctx context.Context, stats *Stats) {
	var (
		mu    sync.Mutex
		sum   float64
		wg    sync.WaitGroup
		seeds = rand.New(rand.NewSource(r.cfg.Seed)) //nolint:gosec // load generation
	)

	for i := 0; i < r.cfg.Players; i++ {
		p := &player{
			id:     i,
			client: r.client,
			cfg:    &r.cfg,
			rng:    rand.New(rand.NewSource(seeds.Int63())), //nolint:gosec // load generation
			log:    r.log,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()

			v, err := r.client.CreateSession(ctx)
			if err != nil {
				mu.Lock()
				if errors.Is(err, ErrSessionLimited) {
					stats.SessionsRejected++
				} else {
					stats.RoundsFailed += r.cfg.Rounds
				}
				mu.Unlock()
				r.log.Warn(ctx, "player could not open a session", logger.Int("player", p.id), logger.Error(err))
				return
			}
			defer func() {
				if err := r.client.CloseSession(context.WithoutCancel(ctx), v.ID); err != nil {
					r.log.Warn(ctx, "closing session failed", logger.String("session", v.ID), logger.Error(err))
				}
			}()

			for round := 0; round < r.cfg.Rounds; round++ {
				if ctx.Err() != nil {
					return
				}
				res, err := p.playRound(ctx, v.ID)

				mu.Lock()
				stats.RoundsPlayed++
				if err != nil {
					stats.RoundsFailed++
				} else {
					stats.RoundsSubmitted++
					sum += res.accuracy
					if res.accuracy > stats.BestAccuracy {
						stats.BestAccuracy = res.accuracy
					}
					if res.grade == worldClassGrade {
						stats.WorldClass++
					}
				}
				mu.Unlock()

				if err != nil {
					r.log.Warn(ctx, "round failed", logger.Int("player", p.id), logger.Int("round", round), logger.Error(err))
					// Leave the session usable for the next round.
					_, _ = r.client.Reset(ctx, v.ID)
				}
			}
		}()
	}
	wg.Wait()

	if stats.RoundsSubmitted > 0 {
		stats.MeanAccuracy = sum / float64(stats.RoundsSubmitted)
	}
}

func (r *Runner) logStats(ctx context.Context, stats *Stats) {
	r.log.Info(ctx, "final statistics",
		logger.Int("players", stats.Players),
		logger.Int("roundsPlayed", stats.RoundsPlayed),
		logger.Int("roundsSubmitted", stats.RoundsSubmitted),
		logger.Int("roundsFailed", stats.RoundsFailed),
		logger.Int("sessionsRejected", stats.SessionsRejected),
		logger.Int("worldClass", stats.WorldClass),
		logger.Float64("bestAccuracy", stats.BestAccuracy),
		logger.Float64("meanAccuracy", stats.MeanAccuracy),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
	)
}
