// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"unicode/utf8"
)

// MaxInitialsLength bounds the runes kept from a player's initials.
const MaxInitialsLength = 3

// Point is a normalized screen coordinate. Values are usually in [0,1] but are
// not clamped.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Neutral is the screen center, used when a click cannot be normalized.
var Neutral = Point{X: 0.5, Y: 0.5} //nolint:gochecknoglobals // immutable value

// EventRecord is the ground truth for one round. Treat it as immutable once built.
type EventRecord struct {
	Player    string `json:"player"`     // player name shown on the freeze frame
	EventType string `json:"event_type"` // e.g. "ability_cast"
	Timestamp string `json:"timestamp"`  // display timecode, e.g. "00:14:22:04"
	Target    Point  `json:"target"`     // where the event happened on screen
	FrameID   string `json:"frame_id"`   // frame or series id, also used for media lookup
	VideoURL  string `json:"video_url,omitempty"`
	IsLive    bool   `json:"is_live"` // true when the record came from live telemetry
}

// ScoreEntry is one persisted leaderboard row.
type ScoreEntry struct {
	Initials  string  `json:"initials"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp string  `json:"timestamp"` // copy of the round's EventRecord.Timestamp
}

// NormalizeInitials trims, upper-cases and truncates initials to at most
// MaxInitialsLength runes.
func NormalizeInitials(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if utf8.RuneCountInString(s) <= MaxInitialsLength {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:MaxInitialsLength]))
}
