package cycle

import (
	"time"

	"cadence/internal/types"
)

// Predictor estimates the phase from calendar data alone.
type Predictor interface {
	PredictPhase(lastPeriodStart time.Time, cycleLength, periodDuration int, now time.Time) types.Phase
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(lastPeriodStart time.Time, cycleLength, periodDuration int, now time.Time) types.Phase

// PredictPhase calls f.
func (f PredictorFunc) PredictPhase(lastPeriodStart time.Time, cycleLength, periodDuration int, now time.Time) types.Phase {
	return f(lastPeriodStart, cycleLength, periodDuration, now)
}

// lutealLength is the fixed distance from ovulation to the next period.
const lutealLength = 14

// CalendarPredictor places ovulation lutealLength days before the next period
// and treats the day either side of it as ovulatory.
type CalendarPredictor struct{}

// PredictPhase implements Predictor.
func (CalendarPredictor) PredictPhase(lastPeriodStart time.Time, cycleLength, periodDuration int, now time.Time) types.Phase {
	day := DayOf(lastPeriodStart, cycleLength, now)
	ovulation := cycleLength - lutealLength

	switch {
	case day <= periodDuration:
		return types.PhaseMenstrual
	case day < ovulation-1:
		return types.PhaseFollicular
	case day <= ovulation+1:
		return types.PhaseOvulatory
	default:
		return types.PhaseLuteal
	}
}

// DayOf returns the 1-based cycle day of now, wrapping every cycleLength days.
// Dates before lastPeriodStart wrap backwards.
func DayOf(lastPeriodStart time.Time, cycleLength int, now time.Time) int {
	if cycleLength <= 0 {
		return 1
	}
	elapsed := daysBetween(lastPeriodStart, now)
	return ((elapsed%cycleLength)+cycleLength)%cycleLength + 1
}

// daysBetween counts calendar days from a to b in a's location.
func daysBetween(a, b time.Time) int {
	loc := a.Location()
	ay, am, ad := a.Date()
	by, bm, bd := b.In(loc).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
