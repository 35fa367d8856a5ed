package telemetry

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/varkiosk/internal/domain/model"
)

// MinLibrarySize is the smallest accepted fallback library.
const MinLibrarySize = 3

// DefaultLibrary returns the bundled fallback events.
func DefaultLibrary() []model.EventRecord {
	return []model.EventRecord{
		{Player: "C9_OXY", EventType: "ability_cast", Timestamp: "00:14:22:04", Target: model.Point{X: 0.52, Y: 0.48}, FrameID: "RX-9922-84"},
		{Player: "SEN_TENZ", EventType: "first_blood", Timestamp: "00:03:41:12", Target: model.Point{X: 0.31, Y: 0.62}, FrameID: "RX-4410-07"},
		{Player: "FNC_BOASTER", EventType: "spike_plant", Timestamp: "00:22:09:18", Target: model.Point{X: 0.68, Y: 0.35}, FrameID: "RX-7731-52"},
		{Player: "PRX_JINGGG", EventType: "clutch_kill", Timestamp: "00:31:55:01", Target: model.Point{X: 0.44, Y: 0.71}, FrameID: "RX-1287-33"},
		{Player: "NAVI_CHRONICLE", EventType: "ultimate", Timestamp: "00:08:17:20", Target: model.Point{X: 0.59, Y: 0.26}, FrameID: "RX-5063-19"},
	}
}

// ValidateLibrary checks size and that every entry is complete.
func ValidateLibrary(lib []model.EventRecord) error {
	if len(lib) < MinLibrarySize {
		return fmt.Errorf("%w: %d entries, need at least %d", ErrInvalidLibrary, len(lib), MinLibrarySize)
	}
	for i, rec := range lib {
		switch {
		case strings.TrimSpace(rec.Player) == "",
			strings.TrimSpace(rec.EventType) == "",
			strings.TrimSpace(rec.Timestamp) == "",
			strings.TrimSpace(rec.FrameID) == "":
			return fmt.Errorf("%w: entry %d has empty fields", ErrInvalidLibrary, i)
		case !finite(rec.Target.X) || !finite(rec.Target.Y):
			return fmt.Errorf("%w: entry %d has a non-finite target", ErrInvalidLibrary, i)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
