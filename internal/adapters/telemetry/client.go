// Package telemetry resolves the ground-truth event for a round from a GraphQL
// telemetry service, degrading to a bundled fallback library on any failure.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RecentSeriesEventsQuery fetches recent series for a title with their events.
const RecentSeriesEventsQuery = `query RecentSeriesEvents($title: String!, $first: Int!) {
  allSeries(filter: {titleName: $title}, first: $first) {
    edges { node { id events { type timestamp position { x y } player { name } } } }
  }
}`

const (
	defaultSeriesLimit = 10
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 512
)

// Config holds configuration for the telemetry client.
type Config struct {
	// Endpoint is the GraphQL URL. Required for live fetches.
	Endpoint string

	// Token is sent as "Authorization: Bearer <token>". Required for live fetches.
	Token string

	// Title filters series by game title, e.g. "valorant".
	Title string

	// SeriesLimit is the number of series requested. Defaults to 10.
	SeriesLimit int

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	HTTPClient *http.Client

	// UserAgent overrides the User-Agent header. Optional.
	UserAgent string
}

// Client is a minimal GraphQL client for the telemetry service.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates a telemetry client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.SeriesLimit <= 0 {
		cfg.SeriesLimit = defaultSeriesLimit
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{config: cfg, http: httpClient}
}

// Configured reports whether both endpoint and token are set.
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.config.Endpoint) != "" && strings.TrimSpace(c.config.Token) != ""
}

// RecentSeries runs RecentSeriesEventsQuery. A response without
// data.allSeries.edges is ErrMalformedResponse.
func (c *Client) RecentSeries(ctx context.Context) ([]Series, error) {
	resp, err := c.doRequest(ctx, RecentSeriesEventsQuery, map[string]any{
		"title": c.config.Title,
		"first": c.config.SeriesLimit,
	})
	if err != nil {
		return nil, err
	}

	var data allSeriesData
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedResponse)
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if data.AllSeries == nil || data.AllSeries.Edges == nil {
		return nil, fmt.Errorf("%w: missing allSeries.edges", ErrMalformedResponse)
	}

	out := make([]Series, 0, len(*data.AllSeries.Edges))
	for _, edge := range *data.AllSeries.Edges {
		if edge.Node == nil {
			continue
		}
		out = append(out, Series{ID: edge.Node.ID, Events: edge.Node.Events})
	}
	return out, nil
}

// doRequest sends a single GraphQL POST and decodes the envelope.
func (c *Client) doRequest(ctx context.Context, query string, variables map[string]any) (*Response, error) {
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("telemetry: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telemetry: http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telemetry: read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: "token rejected"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), maxErrorBody)}
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &GraphQLError{Messages: msgs}
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
