// Package session implements the kiosk round lifecycle:
// IDLE -> PLAYING -> VAR_FREEZE -> RESULT -> LEADERBOARD.
//
// Every transition runs under the session mutex. A trigger that does not
// apply to the current phase is a no-op reported as applied=false.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/varkiosk/internal/domain/model"
	"github.com/okian/varkiosk/internal/domain/scoring"
	"github.com/okian/varkiosk/pkg/logger"
	"github.com/okian/varkiosk/pkg/metrics"
)

const defaultReplayDuration = 2 * time.Second

// EventSource resolves the ground truth for a new round. It must not fail.
type EventSource interface {
	FetchEvent(ctx context.Context) model.EventRecord
}

// ScoreSink persists a submitted score.
type ScoreSink interface {
	Add(ctx context.Context, e model.ScoreEntry) error
}

// View is an immutable snapshot of a session.
type View struct {
	ID       string             `json:"id"`
	Phase    Phase              `json:"phase"`
	RoundID  string             `json:"round_id,omitempty"`
	Event    *model.EventRecord `json:"event,omitempty"`
	Click    *model.Point       `json:"click,omitempty"`
	Accuracy float64            `json:"accuracy"`
	Initials string             `json:"initials"`
	Grade    scoring.Grade      `json:"grade,omitempty"`
}

// Session is one kiosk's game state.
type Session struct {
	mu sync.Mutex

	id       string
	phase    Phase
	roundID  string
	event    *model.EventRecord
	click    *model.Point
	accuracy float64
	initials string

	// generation invalidates in-flight fetches and timers.
	generation uint64
	timer      Timer
	closed     bool

	source     EventSource
	sink       ScoreSink
	clock      Clock
	replay     time.Duration
	resolution scoring.Resolution
	log        logger.Logger
}

// New creates a session in IDLE.
func New(source EventSource, sink ScoreSink, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		phase:      PhaseIdle,
		source:     source,
		sink:       sink,
		clock:      RealClock(),
		replay:     defaultReplayDuration,
		resolution: scoring.DefaultResolution,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("session")
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// StartRound fetches an event and arms the replay timer. Only valid in IDLE.
// The session is PLAYING while the fetch runs, so concurrent starts and clicks
// are no-ops. A Reset during the fetch discards the fetched event.
func (s *Session) StartRound(ctx context.Context) (View, bool) {
	s.mu.Lock()
	if s.closed || s.phase != PhaseIdle {
		v := s.viewLocked()
		s.mu.Unlock()
		return v, false
	}
	s.setPhaseLocked(PhasePlaying)
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	metrics.RecordRoundStarted()
	rec := s.source.FetchEvent(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.phase != PhasePlaying {
		s.log.Debug(ctx, "discarding event fetched for a reset round", logger.String("session", s.id))
		return s.viewLocked(), false
	}
	s.event = &rec
	s.roundID = uuid.NewString()
	s.timer = s.clock.AfterFunc(s.replay, func() { s.freeze(gen) })
	return s.viewLocked(), true
}

// freeze ends the replay. Stale generations are ignored.
func (s *Session) freeze(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.phase != PhasePlaying {
		return
	}
	s.timer = nil
	s.setPhaseLocked(PhaseVarFreeze)
}

// Click scores raw display coordinates against the round's target. Only valid
// in VAR_FREEZE. Coordinates that cannot be normalized score from the center.
func (s *Session) Click(ctx context.Context, rawX, rawY float64) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseVarFreeze || s.event == nil {
		metrics.RecordClickIgnored()
		return s.viewLocked(), false
	}

	p, err := scoring.Normalize(rawX, rawY, s.resolution)
	if err != nil {
		metrics.RecordNormalizationFailure()
		s.log.Warn(ctx, "click normalization failed, using neutral point",
			logger.String("session", s.id),
			logger.Error(err),
		)
		p = model.Neutral
	}

	s.click = &p
	s.accuracy = scoring.Score(p, s.event.Target)
	s.setPhaseLocked(PhaseResult)

	metrics.RecordClickScored()
	metrics.RecordAccuracy(s.accuracy)
	return s.viewLocked(), true
}

// SetInitials updates the pending initials in any phase.
func (s *Session) SetInitials(initials string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initials = model.NormalizeInitials(initials)
	return s.viewLocked()
}

// SubmitScore stores the round's accuracy under the given initials, or the
// pending ones when initials is blank. Only valid in RESULT with non-empty
// initials. On a storage failure the phase and initials are kept and the
// error wraps ErrPersistence.
func (s *Session) SubmitScore(ctx context.Context, initials string) (View, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseResult || s.event == nil {
		return s.viewLocked(), false, nil
	}
	if n := model.NormalizeInitials(initials); n != "" {
		s.initials = n
	}
	if s.initials == "" {
		return s.viewLocked(), false, nil
	}

	entry := model.ScoreEntry{
		Initials:  s.initials,
		Accuracy:  s.accuracy,
		Timestamp: s.event.Timestamp,
	}
	if err := s.sink.Add(ctx, entry); err != nil {
		metrics.RecordSubmissionError()
		s.log.Error(ctx, "score submission failed",
			logger.String("session", s.id),
			logger.String("initials", entry.Initials),
			logger.Error(err),
		)
		return s.viewLocked(), false, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	metrics.RecordScoreSubmitted()
	s.initials = ""
	s.setPhaseLocked(PhaseLeaderboard)
	return s.viewLocked(), true, nil
}

// Retry clears the round and returns to IDLE. Only valid in RESULT.
// Pending initials are kept.
func (s *Session) Retry() (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseResult {
		return s.viewLocked(), false
	}
	s.clearRoundLocked()
	s.setPhaseLocked(PhaseIdle)
	return s.viewLocked(), true
}

// Reset forces the session back to IDLE from any phase.
func (s *Session) Reset() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearRoundLocked()
	s.initials = ""
	s.setPhaseLocked(PhaseIdle)
	return s.viewLocked()
}

// Close stops the replay timer. Later starts are no-ops.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.invalidateLocked()
}

func (s *Session) clearRoundLocked() {
	s.invalidateLocked()
	s.event = nil
	s.click = nil
	s.accuracy = 0
	s.roundID = ""
}

func (s *Session) invalidateLocked() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) setPhaseLocked(to Phase) {
	if s.phase == to {
		return
	}
	metrics.RecordPhaseTransition(s.phase.String(), to.String())
	s.phase = to
}

func (s *Session) viewLocked() View {
	v := View{
		ID:       s.id,
		Phase:    s.phase,
		RoundID:  s.roundID,
		Accuracy: s.accuracy,
		Initials: s.initials,
	}
	if s.event != nil {
		ev := *s.event
		v.Event = &ev
	}
	if s.click != nil {
		c := *s.click
		v.Click = &c
		v.Grade = scoring.GradeFor(s.accuracy)
	}
	return v
}
