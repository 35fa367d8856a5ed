// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry
type Entry struct {
	Rank      int     `json:"rank"`
	Initials  string  `json:"initials"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp string  `json:"timestamp"`
}
