// Package repository defines the leaderboard store interface and its
// in-memory and SQL implementations.
package repository

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/okian/varkiosk/internal/domain/model"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank      int
	Seq       int64 // insertion order, the tie-breaker
	Initials  string
	Accuracy  float64
	Timestamp string
}

// Store provides append and ranked read access to the leaderboard.
type Store interface {
	// Add appends an entry. Invalid entries return ErrInvalidEntry.
	Add(ctx context.Context, e model.ScoreEntry) error

	// TopN returns up to n entries ordered by accuracy desc, then insertion
	// order. Ties share a dense rank. n < 1 returns ErrInvalidLimit.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// ValidateEntry checks initials are 1-3 upper-case runes and accuracy is in [0,100].
func ValidateEntry(e model.ScoreEntry) error {
	n := utf8.RuneCountInString(e.Initials)
	switch {
	case n == 0 || n > model.MaxInitialsLength:
		return fmt.Errorf("%w: initials %q must be 1-%d characters", ErrInvalidEntry, e.Initials, model.MaxInitialsLength)
	case strings.TrimSpace(e.Initials) != e.Initials || strings.ToUpper(e.Initials) != e.Initials:
		return fmt.Errorf("%w: initials %q must be trimmed upper case", ErrInvalidEntry, e.Initials)
	case math.IsNaN(e.Accuracy) || e.Accuracy < 0 || e.Accuracy > 100:
		return fmt.Errorf("%w: accuracy %v out of range", ErrInvalidEntry, e.Accuracy)
	}
	return nil
}

// assignRanksWithTies assigns dense ranks: equal accuracy shares a rank and
// the next distinct accuracy gets the next rank.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Accuracy != entries[i-1].Accuracy {
			rank++
		}
		entries[i].Rank = rank
	}
}
