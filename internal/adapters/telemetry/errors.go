package telemetry

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for telemetry errors.
var (
	ErrEmptyResult       = errors.New("telemetry: no series with events")
	ErrMalformedResponse = errors.New("telemetry: malformed response")
	ErrInvalidLibrary    = errors.New("telemetry: invalid fallback library")
)

// HTTPError is a non-2xx response from the telemetry service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("telemetry: HTTP %d: %s", e.StatusCode, e.Body)
}

// AuthError indicates a rejected or missing API token.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("telemetry: authentication failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "telemetry: graphql: " + strings.Join(e.Messages, "; ")
}
