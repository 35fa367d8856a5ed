package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/okian/varkiosk/internal/app"
	"github.com/okian/varkiosk/internal/adapters/repository"
	"github.com/okian/varkiosk/internal/adapters/telemetry"
	"github.com/okian/varkiosk/internal/domain/model"
	"github.com/okian/varkiosk/internal/domain/scoring"
	"github.com/okian/varkiosk/internal/domain/session"
	"github.com/okian/varkiosk/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type centerSource struct{}

func (centerSource) FetchEvent(context.Context) model.EventRecord {
	return model.EventRecord{
		Player:    "C9_OXY",
		EventType: "ability_cast",
		Timestamp: "00:14:22:04",
		Target:    model.Neutral,
		FrameID:   "RX-9922-84",
	}
}

type manualTimer struct {
	mu      sync.Mutex
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// manualClock fires replay timers only when told to.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) session.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) fire() {
	c.mu.Lock()
	timers := c.timers
	c.timers = nil
	c.mu.Unlock()
	for _, t := range timers {
		t.mu.Lock()
		stopped := t.stopped
		t.stopped = true
		t.mu.Unlock()
		if !stopped {
			t.f()
		}
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service with a manual clock", t, func() {
		clock := &manualClock{}
		svc := service.New(
			service.WithProvider(centerSource{}),
			service.WithStore(repository.NewTreapStore()),
			service.WithClock(clock),
			service.WithMaxSessions(2),
			service.WithQueueSize(8),
			service.WithResolution(scoring.DefaultResolution),
			service.WithLogger(logger.NewNop()),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		view, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)
		So(view.Phase, ShouldEqual, session.PhaseIdle)
		id := view.ID

		Convey("When a full round is played and submitted", func() {
			v, applied, err := svc.StartRound(ctx, id)
			So(err, ShouldBeNil)
			So(applied, ShouldBeTrue)
			So(v.Phase, ShouldEqual, session.PhasePlaying)
			So(v.RoundID, ShouldNotBeEmpty)

			clock.fire()
			v, err = svc.SessionView(ctx, id)
			So(err, ShouldBeNil)
			So(v.Phase, ShouldEqual, session.PhaseVarFreeze)

			v, applied, err = svc.Click(ctx, id, 960, 540)
			So(err, ShouldBeNil)
			So(applied, ShouldBeTrue)
			So(v.Phase, ShouldEqual, session.PhaseResult)
			So(v.Accuracy, ShouldEqual, 100)
			So(v.Grade, ShouldEqual, scoring.GradeWorldClass)

			v, applied, err = svc.SubmitScore(ctx, id, "abc")
			So(err, ShouldBeNil)
			So(applied, ShouldBeTrue)
			So(v.Phase, ShouldEqual, session.PhaseLeaderboard)

			Convey("Then the score should be on the leaderboard", func() {
				top, err := svc.TopN(ctx, 0)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 1)
				So(top[0].Rank, ShouldEqual, 1)
				So(top[0].Initials, ShouldEqual, "ABC")
				So(top[0].Accuracy, ShouldEqual, 100)
				So(top[0].Timestamp, ShouldEqual, "00:14:22:04")
			})

			Convey("Then a reset should return the session to IDLE", func() {
				v, err := svc.Reset(ctx, id)
				So(err, ShouldBeNil)
				So(v.Phase, ShouldEqual, session.PhaseIdle)
				So(v.Event, ShouldBeNil)
			})
		})

		Convey("When clicking before the replay freezes", func() {
			_, _, err := svc.StartRound(ctx, id)
			So(err, ShouldBeNil)
			v, applied, err := svc.Click(ctx, id, 10, 10)

			Convey("Then the click should be ignored", func() {
				So(err, ShouldBeNil)
				So(applied, ShouldBeFalse)
				So(v.Phase, ShouldEqual, session.PhasePlaying)
			})
		})

		Convey("When retrying from RESULT", func() {
			_, _, _ = svc.StartRound(ctx, id)
			clock.fire()
			_, _, _ = svc.Click(ctx, id, 0, 0)
			_ = mustView(svc.SetInitials(ctx, id, "zq"))
			v, applied, err := svc.Retry(ctx, id)

			Convey("Then the round is cleared and nothing is persisted", func() {
				So(err, ShouldBeNil)
				So(applied, ShouldBeTrue)
				So(v.Phase, ShouldEqual, session.PhaseIdle)
				So(v.Initials, ShouldEqual, "ZQ")

				top, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldBeEmpty)
			})
		})

		Convey("When the session limit is reached", func() {
			_, err := svc.CreateSession(ctx)
			So(err, ShouldBeNil)
			_, err = svc.CreateSession(ctx)

			Convey("Then further sessions should be rejected", func() {
				So(errors.Is(err, service.ErrTooManySessions), ShouldBeTrue)
			})

			Convey("Then closing a session should free a slot", func() {
				So(svc.CloseSession(ctx, id), ShouldBeNil)
				_, err := svc.CreateSession(ctx)
				So(err, ShouldBeNil)
			})
		})

		Convey("When addressing an unknown session", func() {
			_, err := svc.SessionView(ctx, "nope")
			So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)

			_, _, err = svc.Click(ctx, "nope", 1, 1)
			So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)

			err = svc.CloseSession(ctx, "nope")
			So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
		})
	})
}

func TestServiceIntegration_Leaderboard(t *testing.T) {
	Convey("Given a service that has recorded several rounds", t, func() {
		clock := &manualClock{}
		svc := service.New(
			service.WithProvider(centerSource{}),
			service.WithClock(clock),
			service.WithLeaderboardLimits(3, 4),
			service.WithLogger(logger.NewNop()),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		view, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)

		for i := 0; i < 6; i++ {
			_, applied, err := svc.StartRound(ctx, view.ID)
			So(err, ShouldBeNil)
			So(applied, ShouldBeTrue)
			clock.fire()
			_, applied, err = svc.Click(ctx, view.ID, 960+float64(i*50), 540)
			So(err, ShouldBeNil)
			So(applied, ShouldBeTrue)
			_, applied, err = svc.SubmitScore(ctx, view.ID, fmt.Sprintf("P%d", i))
			So(err, ShouldBeNil)
			So(applied, ShouldBeTrue)
			_ = mustView(svc.Reset(ctx, view.ID))
		}

		Convey("When asking for the default leaderboard", func() {
			top, err := svc.TopN(ctx, 0)

			Convey("Then the default limit should apply in accuracy order", func() {
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 3)
				So(top[0].Initials, ShouldEqual, "P0")
				So(top[0].Accuracy, ShouldBeGreaterThan, top[1].Accuracy)
				So(top[1].Accuracy, ShouldBeGreaterThan, top[2].Accuracy)
			})
		})

		Convey("When asking for more than the maximum", func() {
			top, err := svc.TopN(ctx, 50)

			Convey("Then the result should be capped", func() {
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 4)
			})
		})

		Convey("When reading stats", func() {
			stats := svc.GetStats(ctx)

			Convey("Then the persisted entries should be counted", func() {
				So(stats["leaderboardEntries"], ShouldEqual, 6)
				So(stats["activeSessions"], ShouldEqual, 1)
			})
		})
	})
}

func TestServiceIntegration_DefaultProvider(t *testing.T) {
	Convey("Given a service with a seeded fallback-only provider", t, func() {
		p, err := telemetry.NewProvider(telemetry.DefaultLibrary(),
			telemetry.WithSeed(42),
			telemetry.WithLogger(logger.NewNop()),
		)
		So(err, ShouldBeNil)

		clock := &manualClock{}
		svc := service.New(
			service.WithProvider(p),
			service.WithClock(clock),
			service.WithLogger(logger.NewNop()),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		view, err := svc.CreateSession(ctx)
		So(err, ShouldBeNil)

		Convey("When a round starts", func() {
			v, applied, err := svc.StartRound(ctx, view.ID)

			Convey("Then the event should come from the fallback library", func() {
				So(err, ShouldBeNil)
				So(applied, ShouldBeTrue)
				So(v.Event, ShouldNotBeNil)

				found := false
				for _, rec := range telemetry.DefaultLibrary() {
					if rec.FrameID == v.Event.FrameID {
						found = true
					}
				}
				So(found, ShouldBeTrue)
				So(v.Event.IsLive, ShouldBeFalse)
			})
		})
	})
}

func mustView(v session.View, err error) session.View {
	if err != nil {
		panic(err)
	}
	return v
}
