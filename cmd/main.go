package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/varkiosk/internal/adapters/http/api"
	"github.com/okian/varkiosk/internal/adapters/http/swagger"
	"github.com/okian/varkiosk/internal/adapters/media"
	"github.com/okian/varkiosk/internal/adapters/repository"
	"github.com/okian/varkiosk/internal/adapters/telemetry"
	app "github.com/okian/varkiosk/internal/app"
	"github.com/okian/varkiosk/internal/config"
	"github.com/okian/varkiosk/internal/domain/scoring"
	"github.com/okian/varkiosk/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> dotenv -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr since the logger format depends on config
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "varkiosk exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the service and serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService builds the telemetry provider and the leaderboard store from cfg.
func newService(ctx context.Context, cfg *config.Config) (*app.Service, error) {
	log := logger.Get()

	resolver := media.New(cfg.FallbackVideoURL, media.WithAssets(cfg.MediaAssets))
	client := telemetry.NewClient(telemetry.Config{
		Endpoint:    cfg.TelemetryEndpoint,
		Token:       cfg.TelemetryToken,
		Title:       cfg.TelemetryTitle,
		SeriesLimit: cfg.TelemetrySeriesLimit,
	})
	provider, err := telemetry.NewProvider(telemetry.DefaultLibrary(),
		telemetry.WithClient(client),
		telemetry.WithSeed(cfg.RandomSeed),
		telemetry.WithTimeout(cfg.TelemetryTimeout()),
		telemetry.WithResolver(resolver),
		telemetry.WithLogger(log.Named("telemetry")),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry provider: %w", err)
	}
	if !provider.Live() {
		log.Warn(ctx, "telemetry credentials not configured, rounds use the fallback library")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithProvider(provider),
		app.WithStore(store),
		app.WithMaxSessions(cfg.MaxSessions),
		app.WithQueueSize(cfg.WriterQueueSize),
		app.WithLeaderboardLimits(cfg.LeaderboardDefaultLimit, cfg.MaxLeaderboardLimit),
		app.WithReplayDuration(cfg.ReplayDuration()),
		app.WithResolution(scoring.Resolution{Width: cfg.ReferenceWidth, Height: cfg.ReferenceHeight}),
		app.WithShareBaseURL(cfg.ShareBaseURL),
	), nil
}

// openStore selects the leaderboard backend.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.LeaderboardBackend {
	case config.BackendSQLite:
		store, err := repository.NewSQLStore(ctx, repository.DialectSQLite, cfg.LeaderboardDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite leaderboard: %w", err)
		}
		return store, nil
	case config.BackendPostgres:
		store, err := repository.NewSQLStore(ctx, repository.DialectPostgres, cfg.LeaderboardDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres leaderboard: %w", err)
		}
		return store, nil
	default:
		return repository.NewTreapStore(), nil
	}
}

// newRouter mounts the API and its OpenAPI description.
func newRouter(ctx context.Context, svc *app.Service) chi.Router {
	r := chi.NewRouter()
	api.NewServer(svc, svc, api.WithLogger(logger.Get().Named("api"))).Register(ctx, r)
	swagger.Register(ctx, r)
	return r
}
