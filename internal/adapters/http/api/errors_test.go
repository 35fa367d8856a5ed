package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/okian/varkiosk/internal/adapters/http/api"
	"github.com/okian/varkiosk/internal/adapters/mq/worker"
	service "github.com/okian/varkiosk/internal/app"
	"github.com/okian/varkiosk/internal/domain/session"
	"github.com/okian/varkiosk/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps fails every session operation with err.
type mockDeps struct {
	err   error
	top   []api.Entry
	lastN int
}

func (m *mockDeps) CreateSession(context.Context) (session.View, error) {
	return session.View{}, m.err
}

func (m *mockDeps) SessionView(context.Context, string) (session.View, error) {
	return session.View{}, m.err
}

func (m *mockDeps) CloseSession(context.Context, string) error { return m.err }

func (m *mockDeps) StartRound(context.Context, string) (session.View, bool, error) {
	return session.View{}, false, m.err
}

func (m *mockDeps) Click(context.Context, string, float64, float64) (session.View, bool, error) {
	return session.View{}, false, m.err
}

func (m *mockDeps) SetInitials(context.Context, string, string) (session.View, error) {
	return session.View{}, m.err
}

func (m *mockDeps) SubmitScore(context.Context, string, string) (session.View, bool, error) {
	return session.View{Phase: session.PhaseResult}, false, m.err
}

func (m *mockDeps) Retry(context.Context, string) (session.View, bool, error) {
	return session.View{}, false, m.err
}

func (m *mockDeps) Reset(context.Context, string) (session.View, error) {
	return session.View{}, m.err
}

func (m *mockDeps) ShareURL(session.View) string { return "" }

func (m *mockDeps) TopN(_ context.Context, n int) ([]api.Entry, error) {
	m.lastN = n
	if m.err != nil {
		return nil, m.err
	}
	if n > 0 && n < len(m.top) {
		return m.top[:n], nil
	}
	return m.top, nil
}

func (m *mockDeps) GetStats(context.Context) map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func TestAPI_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown session", fmt.Errorf("%w: x", service.ErrSessionNotFound), http.StatusNotFound, "not_found"},
		{"session limit", fmt.Errorf("%w: limit 1", service.ErrTooManySessions), http.StatusTooManyRequests, "too_many_sessions"},
		{"persistence", fmt.Errorf("%w: %w", session.ErrPersistence, errors.New("disk full")), http.StatusInternalServerError, "persistence_error"},
		{"backpressure", fmt.Errorf("%w: %w", session.ErrPersistence, worker.ErrBackpressure), http.StatusServiceUnavailable, "backpressure"},
		{"not started", service.ErrNotStarted, http.StatusServiceUnavailable, "unavailable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	Convey("Given an API whose dependencies fail", t, func() {
		for _, tc := range cases {
			tc := tc
			Convey("When the failure is "+tc.name, func() {
				deps := &mockDeps{err: tc.err}
				router := api.NewServer(deps, deps, api.WithLogger(logger.NewNop())).Routes(context.Background())
				w := do(router, http.MethodPost, "/sessions/abc/submit", `{"initials":"abc"}`)

				Convey("Then it should map to the right status and code", func() {
					So(w.Code, ShouldEqual, tc.status)
					var e errorBody
					So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
					So(e.Code, ShouldEqual, tc.code)
					So(e.Message, ShouldStartWith, "api.submit_score")
				})
			})
		}
	})
}

func TestAPI_ErrorHelpers(t *testing.T) {
	Convey("Given an underlying error", t, func() {
		cause := errors.New("socket closed")

		Convey("When wrapped with an op", func() {
			err := api.Wrap("api.op", cause)

			Convey("Then the op prefixes the message and the cause unwraps", func() {
				So(err.Error(), ShouldEqual, "api.op: socket closed")
				So(errors.Is(err, cause), ShouldBeTrue)
			})
		})

		Convey("When wrapped with a kind", func() {
			err := api.WrapKind("api.op", api.ErrBackpressure, cause)

			Convey("Then both the kind and the cause match", func() {
				So(errors.Is(err, api.ErrBackpressure), ShouldBeTrue)
				So(errors.Is(err, cause), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "api.op: backpressure: socket closed")
			})
		})

		Convey("When a bare kind is created", func() {
			err := api.NewKind("api.op", api.ErrBadRequest)

			Convey("Then it matches the kind", func() {
				So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "api.op: bad request")
			})
		})

		Convey("When wrapping nil", func() {
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})
	})
}
