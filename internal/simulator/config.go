// Package simulator drives simulated kiosk players against a running server.
package simulator

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Players       int           // Concurrent simulated players
	Rounds        int           // Rounds each player plays
	TopN          int           // Leaderboard entries fetched for verification
	Timeout       time.Duration // HTTP request timeout
	PollInterval  time.Duration // Delay between session polls while PLAYING
	FreezeTimeout time.Duration // Maximum wait for VAR_FREEZE
	Width         float64       // Display width clicks are drawn from
	Height        float64       // Display height clicks are drawn from
	Seed          int64         // Random seed; zero seeds from the clock
	Verbose       bool          // Log every round
}

// View is the session shape returned by the API.
type View struct {
	ID       string  `json:"id"`
	Phase    string  `json:"phase"`
	RoundID  string  `json:"round_id"`
	Accuracy float64 `json:"accuracy"`
	Initials string  `json:"initials"`
	Grade    string  `json:"grade"`
	Applied  *bool   `json:"applied"`
}

// Entry represents a leaderboard entry.
type Entry struct {
	Rank      int     `json:"rank"`
	Initials  string  `json:"initials"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp string  `json:"timestamp"`
}

// Stats holds run statistics.
type Stats struct {
	Players            int
	RoundsPlayed       int
	RoundsSubmitted    int
	RoundsFailed       int
	SessionsRejected   int
	WorldClass         int
	BestAccuracy       float64
	MeanAccuracy       float64
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
