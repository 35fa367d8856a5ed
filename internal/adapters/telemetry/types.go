package telemetry

import "encoding/json"

// Response is the GraphQL response envelope.
type Response struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Series is one match series with its recent events.
type Series struct {
	ID     string
	Events []Event
}

// Event is a raw telemetry event. Nil fields were absent in the response.
type Event struct {
	Type      *string   `json:"type"`
	Timestamp *string   `json:"timestamp"`
	Position  *Position `json:"position"`
	Player    *Player   `json:"player"`
}

// Position is an on-screen coordinate.
type Position struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// Player identifies who triggered the event.
type Player struct {
	Name *string `json:"name"`
}

type seriesNode struct {
	ID     string  `json:"id"`
	Events []Event `json:"events"`
}

type allSeriesData struct {
	AllSeries *struct {
		Edges *[]struct {
			Node *seriesNode `json:"node"`
		} `json:"edges"`
	} `json:"allSeries"`
}
