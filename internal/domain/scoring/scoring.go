// Package scoring computes click accuracy against a ground-truth target.
package scoring

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/okian/varkiosk/internal/domain/model"
)

// Scoring constants.
const (
	MaxAccuracy = 100
	// distanceWeight maps normalized distance to accuracy points; a miss of
	// 0.5 screen units or more scores zero.
	distanceWeight = 200
	roundPlaces    = 1

	// WorldClassThreshold is the accuracy above which a round earns the top grade.
	WorldClassThreshold = 90
)

// Grade is the verdict shown on the result screen.
type Grade string

// Grades.
const (
	GradeWorldClass  Grade = "world_class"
	GradeGoodAttempt Grade = "good_attempt"
)

// Resolution is the reference display size raw clicks are normalized against.
type Resolution struct {
	Width  float64
	Height float64
}

// DefaultResolution is the 1080p kiosk display.
var DefaultResolution = Resolution{Width: 1920, Height: 1080} //nolint:gochecknoglobals // immutable value

// Accuracy returns max(0, 100 - 200*d) where d is the Euclidean distance
// between user and target. There is no upper clamp; identical points score 100.
func Accuracy(user, target model.Point) float64 {
	d := math.Hypot(user.X-target.X, user.Y-target.Y)
	if math.IsNaN(d) {
		return 0
	}
	return math.Max(0, MaxAccuracy-d*distanceWeight)
}

// Round rounds v half away from zero to one decimal place.
func Round(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(roundPlaces).InexactFloat64()
}

// Score is the rounded accuracy recorded for a round.
func Score(user, target model.Point) float64 {
	return Round(Accuracy(user, target))
}

// GradeFor returns the feedback verdict for an accuracy.
func GradeFor(accuracy float64) Grade {
	if accuracy > WorldClassThreshold {
		return GradeWorldClass
	}
	return GradeGoodAttempt
}

// Normalize converts raw pixel coordinates into the unit square of ref.
// Out-of-range values are passed through unchanged.
func Normalize(rawX, rawY float64, ref Resolution) (model.Point, error) {
	if !finite(rawX) || !finite(rawY) {
		return model.Point{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinates, rawX, rawY)
	}
	if !finite(ref.Width) || !finite(ref.Height) || ref.Width <= 0 || ref.Height <= 0 {
		return model.Point{}, fmt.Errorf("%w: reference %vx%v", ErrInvalidCoordinates, ref.Width, ref.Height)
	}
	return model.Point{X: rawX / ref.Width, Y: rawY / ref.Height}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
