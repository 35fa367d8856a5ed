package simulator

import "fmt"

// VerifyLeaderboard checks that entries are ordered by accuracy descending and
// that ranks start at 1 and only grow when accuracy drops.
func VerifyLeaderboard(entries []Entry) error {
	for i, e := range entries {
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: first rank is %d", ErrNotSorted, e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		switch {
		case e.Accuracy > prev.Accuracy:
			return fmt.Errorf("%w: entry %d (%.1f) above entry %d (%.1f)",
				ErrNotSorted, i, e.Accuracy, i-1, prev.Accuracy)
		case e.Accuracy == prev.Accuracy && e.Rank != prev.Rank:
			return fmt.Errorf("%w: tied entries %d and %d have ranks %d and %d",
				ErrNotSorted, i-1, i, prev.Rank, e.Rank)
		case e.Accuracy < prev.Accuracy && e.Rank <= prev.Rank:
			return fmt.Errorf("%w: entry %d rank %d does not follow rank %d",
				ErrNotSorted, i, e.Rank, prev.Rank)
		}
	}
	return nil
}
