package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/varkiosk/internal/domain/session"
)

// SessionDependencies defines the session operations the handlers drive.
type SessionDependencies interface {
	CreateSession(ctx context.Context) (session.View, error)
	SessionView(ctx context.Context, id string) (session.View, error)
	CloseSession(ctx context.Context, id string) error
	StartRound(ctx context.Context, id string) (session.View, bool, error)
	Click(ctx context.Context, id string, x, y float64) (session.View, bool, error)
	SetInitials(ctx context.Context, id, initials string) (session.View, error)
	SubmitScore(ctx context.Context, id, initials string) (session.View, bool, error)
	Retry(ctx context.Context, id string) (session.View, bool, error)
	Reset(ctx context.Context, id string) (session.View, error)
	ShareURL(v session.View) string
}

// SessionHandler handles the /sessions routes.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

type clickRequest struct {
	X json.RawMessage `json:"x"`
	Y json.RawMessage `json:"y"`
}

type initialsRequest struct {
	Initials string `json:"initials"`
}

// HandleCreate handles POST /sessions.
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	v, err := h.deps.CreateSession(r.Context())
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.respond(v, nil))
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	v, err := h.deps.SessionView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.respond(v, nil))
}

// HandleClose handles DELETE /sessions/{id}.
func (h *SessionHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	const op = "api.close_session"
	if err := h.deps.CloseSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStart handles POST /sessions/{id}/start.
func (h *SessionHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_round"
	v, applied, err := h.deps.StartRound(r.Context(), chi.URLParam(r, "id"))
	h.transition(w, r, op, v, applied, err)
}

// HandleClick handles POST /sessions/{id}/click with raw pixel coordinates.
// Missing or non-numeric coordinates are passed on as NaN.
func (h *SessionHandler) HandleClick(w http.ResponseWriter, r *http.Request) {
	const op = "api.click"
	var req clickRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	v, applied, err := h.deps.Click(r.Context(), chi.URLParam(r, "id"), coordinate(req.X), coordinate(req.Y))
	h.transition(w, r, op, v, applied, err)
}

// HandleInitials handles PUT /sessions/{id}/initials.
func (h *SessionHandler) HandleInitials(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_initials"
	var req initialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	v, err := h.deps.SetInitials(r.Context(), chi.URLParam(r, "id"), req.Initials)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.respond(v, nil))
}

// HandleSubmit handles POST /sessions/{id}/submit. Blank initials submit the
// pending buffer.
func (h *SessionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_score"
	var req initialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	v, applied, err := h.deps.SubmitScore(r.Context(), chi.URLParam(r, "id"), req.Initials)
	h.transition(w, r, op, v, applied, err)
}

// HandleRetry handles POST /sessions/{id}/retry.
func (h *SessionHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	const op = "api.retry"
	v, applied, err := h.deps.Retry(r.Context(), chi.URLParam(r, "id"))
	h.transition(w, r, op, v, applied, err)
}

// HandleReset handles POST /sessions/{id}/reset.
func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset"
	v, err := h.deps.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	applied := true
	writeJSON(w, http.StatusOK, h.respond(v, &applied))
}

func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, op string, v session.View, applied bool, err error) {
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.respond(v, &applied))
}

func (h *SessionHandler) respond(v session.View, applied *bool) sessionResponse {
	resp := sessionResponse{View: v, Applied: applied}
	if v.Phase == session.PhaseResult {
		resp.ShareURL = h.deps.ShareURL(v)
	}
	return resp
}

// coordinate reads a JSON number or numeric string, or NaN.
func coordinate(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return math.NaN()
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return math.NaN()
}
