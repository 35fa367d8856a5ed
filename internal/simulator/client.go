package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxErrorBody = 256

// Client calls the kiosk HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks that /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

// CreateSession opens a new session.
func (c *Client) CreateSession(ctx context.Context) (View, error) {
	var v View
	err := c.do(ctx, http.MethodPost, "/sessions", nil, &v, http.StatusCreated)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusTooManyRequests {
		return v, fmt.Errorf("%w: %w", ErrSessionLimited, err)
	}
	return v, err
}

// Session fetches a session view.
func (c *Client) Session(ctx context.Context, id string) (View, error) {
	var v View
	err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, &v, http.StatusOK)
	return v, err
}

// CloseSession deletes a session.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+id, nil, nil, http.StatusNoContent)
}

// Start begins a round.
func (c *Client) Start(ctx context.Context, id string) (View, error) {
	return c.transition(ctx, "/sessions/"+id+"/start", nil)
}

// Click sends raw pixel coordinates.
func (c *Client) Click(ctx context.Context, id string, x, y float64) (View, error) {
	return c.transition(ctx, "/sessions/"+id+"/click", map[string]float64{"x": x, "y": y})
}

// Submit persists the round under initials.
func (c *Client) Submit(ctx context.Context, id, initials string) (View, error) {
	return c.transition(ctx, "/sessions/"+id+"/submit", map[string]string{"initials": initials})
}

// Reset forces the session back to IDLE.
func (c *Client) Reset(ctx context.Context, id string) (View, error) {
	return c.transition(ctx, "/sessions/"+id+"/reset", nil)
}

// Leaderboard fetches the top n entries.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]Entry, error) {
	var entries []Entry
	err := c.do(ctx, http.MethodGet, "/leaderboard?limit="+strconv.Itoa(n), nil, &entries, http.StatusOK)
	return entries, err
}

func (c *Client) transition(ctx context.Context, path string, body any) (View, error) {
	var v View
	if err := c.do(ctx, http.MethodPost, path, body, &v, http.StatusOK); err != nil {
		return v, err
	}
	if v.Applied != nil && !*v.Applied {
		return v, fmt.Errorf("%w: %s in phase %s", ErrNotApplied, path, v.Phase)
	}
	return v, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, want int) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
