// Package service wires kiosk sessions, the telemetry provider and the
// leaderboard writer behind the operations the HTTP API exposes.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/okian/varkiosk/internal/adapters/mq/queue"
	"github.com/okian/varkiosk/internal/adapters/mq/worker"
	"github.com/okian/varkiosk/internal/adapters/repository"
	"github.com/okian/varkiosk/internal/adapters/telemetry"
	"github.com/okian/varkiosk/internal/domain/scoring"
	"github.com/okian/varkiosk/internal/domain/session"
	"github.com/okian/varkiosk/internal/domain/types"
	"github.com/okian/varkiosk/pkg/logger"
	"github.com/okian/varkiosk/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultMaxSessions = 64
	defaultQueueSize   = 1024
	defaultLimit       = 5
	defaultMaxLimit    = 100
	defaultReplay      = 2 * time.Second
	stopTimeout        = 10 * time.Second
)

// Service implements the API dependencies for the kiosk.
type Service struct {
	mu sync.RWMutex

	// Core components
	sessions map[string]*session.Session
	provider session.EventSource
	store    repository.Store
	queue    *queue.InMemoryQueue
	writer   *worker.Writer

	// Configuration
	maxSessions  int
	queueSize    int
	defaultLimit int
	maxLimit     int
	replay       time.Duration
	resolution   scoring.Resolution
	clock        session.Clock
	shareBaseURL string

	// State
	started   bool
	startedAt time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:     make(map[string]*session.Session),
		maxSessions:  defaultMaxSessions,
		queueSize:    defaultQueueSize,
		defaultLimit: defaultLimit,
		maxLimit:     defaultMaxLimit,
		replay:       defaultReplay,
		resolution:   scoring.DefaultResolution,
		clock:        session.RealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting kiosk service...")

	if s.store == nil {
		s.store = repository.NewTreapStore()
		s.logger.Info(ctx, "using in-memory treap store")
	}
	if s.provider == nil {
		p, err := telemetry.NewProvider(telemetry.DefaultLibrary())
		if err != nil {
			return fmt.Errorf("service: default provider: %w", err)
		}
		s.provider = p
		s.logger.Info(ctx, "using fallback-only telemetry provider")
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.writer = worker.NewWriter(s.queue, s.store, worker.WithLogger(s.logger.Named("writer")))
	s.writer.Start(context.WithoutCancel(ctx))

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.runSystemMetrics(s.stopCh)

	s.started = true
	s.startedAt = time.Now()
	metrics.UpdateActiveSessions(0)
	s.logger.Info(ctx, "kiosk service started",
		logger.Int("maxSessions", s.maxSessions),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("replay", s.replay),
	)
	return nil
}

// Stop closes every session, drains pending writes and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping kiosk service...")

	for id, sess := range s.sessions {
		sess.Close()
		delete(s.sessions, id)
	}
	metrics.UpdateActiveSessions(0)

	if err := s.writer.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "writer shutdown failed", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "closing leaderboard store failed", logger.Error(err))
	}

	close(s.stopCh)
	s.wg.Wait()

	s.started = false
	s.logger.Info(ctx, "kiosk service stopped")
}

// CreateSession opens a new IDLE session.
func (s *Service) CreateSession(ctx context.Context) (session.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return session.View{}, ErrNotStarted
	}
	if len(s.sessions) >= s.maxSessions {
		metrics.RecordSessionRejected()
		return session.View{}, fmt.Errorf("%w: limit %d", ErrTooManySessions, s.maxSessions)
	}

	sess := session.New(s.provider, s.writer,
		session.WithClock(s.clock),
		session.WithReplayDuration(s.replay),
		session.WithResolution(s.resolution),
		session.WithLogger(s.logger.Named("session")),
	)
	s.sessions[sess.ID()] = sess
	metrics.UpdateActiveSessions(len(s.sessions))
	s.logger.Debug(ctx, "session created", logger.String("session", sess.ID()))
	return sess.View(), nil
}

// SessionView returns a snapshot of a session.
func (s *Service) SessionView(_ context.Context, id string) (session.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return session.View{}, err
	}
	return sess.View(), nil
}

// CloseSession stops a session's timer and forgets it.
func (s *Service) CloseSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Close()
	delete(s.sessions, id)
	metrics.UpdateActiveSessions(len(s.sessions))
	s.logger.Debug(ctx, "session closed", logger.String("session", id))
	return nil
}

// StartRound begins a round on an IDLE session.
func (s *Service) StartRound(ctx context.Context, id string) (session.View, bool, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return session.View{}, false, err
	}
	v, applied := sess.StartRound(ctx)
	return v, applied, nil
}

// Click scores raw display coordinates. NaN coordinates score from the center.
func (s *Service) Click(ctx context.Context, id string, x, y float64) (session.View, bool, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return session.View{}, false, err
	}
	v, applied := sess.Click(ctx, x, y)
	return v, applied, nil
}

// SetInitials updates the pending initials.
func (s *Service) SetInitials(_ context.Context, id, initials string) (session.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return session.View{}, err
	}
	return sess.SetInitials(initials), nil
}

// SubmitScore persists the round through the single writer.
func (s *Service) SubmitScore(ctx context.Context, id, initials string) (session.View, bool, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return session.View{}, false, err
	}
	return sess.SubmitScore(ctx, initials)
}

// Retry returns a RESULT session to IDLE.
func (s *Service) Retry(_ context.Context, id string) (session.View, bool, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return session.View{}, false, err
	}
	v, applied := sess.Retry()
	return v, applied, nil
}

// Reset forces a session back to IDLE.
func (s *Service) Reset(_ context.Context, id string) (session.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return session.View{}, err
	}
	return sess.Reset(), nil
}

// TopN returns the top n leaderboard entries. n == 0 uses the default limit
// and n above the maximum is capped.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	s.mu.RLock()
	store, started := s.store, s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	if n == 0 {
		n = s.defaultLimit
	}
	if n > s.maxLimit {
		n = s.maxLimit
	}

	entries, err := store.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	apiEntries := make([]types.Entry, len(entries))
	for i, entry := range entries {
		apiEntries[i] = types.Entry{
			Rank:      entry.Rank,
			Initials:  entry.Initials,
			Accuracy:  entry.Accuracy,
			Timestamp: entry.Timestamp,
		}
	}
	return apiEntries, nil
}

// ShareURL builds the result share link, or "" when sharing is disabled or
// the round has no result.
func (s *Service) ShareURL(v session.View) string {
	if s.shareBaseURL == "" || v.Click == nil {
		return ""
	}
	u, err := url.Parse(s.shareBaseURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("score", strconv.FormatFloat(v.Accuracy, 'f', 1, 64))
	q.Set("initials", v.Initials)
	u.RawQuery = q.Encode()
	return u.String()
}

// DefaultLimit returns the leaderboard size used when none is requested.
func (s *Service) DefaultLimit() int { return s.defaultLimit }

// MaxLimit returns the largest accepted leaderboard size.
func (s *Service) MaxLimit() int { return s.maxLimit }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"maxSessions":    s.maxSessions,
		"queueCapacity":  s.queueSize,
		"replayDuration": s.replay.String(),
	}
	if !s.started {
		return stats
	}

	stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	stats["activeSessions"] = len(s.sessions)
	stats["queueLength"] = s.queue.Len(ctx)
	if count, err := s.store.Count(ctx); err == nil {
		stats["leaderboardEntries"] = count
	}
	if live, ok := s.provider.(interface{ Live() bool }); ok {
		stats["telemetryLive"] = live.Live()
	}
	return stats
}

func (s *Service) lookup(id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}
