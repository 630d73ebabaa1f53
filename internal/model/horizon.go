package model

import (
	"math"
	"time"
)

// HoursPerDay and DaysPerYear are used to relate the simulated period to a standard year.
const (
	HoursPerDay = 24.0
	DaysPerYear = 365.25
)

// Horizon is the ordered set of equal-length intervals covering the simulated period.
// Units:
// - StepHours: hours per interval
// - Days: length of the period in days
type Horizon struct {
	Steps     int
	StepHours float64
	Days      float64
}

// NewHorizon derives the step count from the resolution and period length.
// The period must be an exact multiple of the resolution.
func NewHorizon(stepHours, days float64) (Horizon, error) {
	if stepHours <= 0 || math.IsNaN(stepHours) {
		return Horizon{}, InputError("horizon", "time resolution must be > 0 hours, got %v", stepHours)
	}
	if days <= 0 || math.IsNaN(days) {
		return Horizon{}, InputError("horizon", "days in period must be > 0, got %v", days)
	}
	hours := days * HoursPerDay
	steps := int(math.Round(hours / stepHours))
	if steps < 1 {
		return Horizon{}, InputError("horizon", "period of %v h is shorter than one %v h interval", hours, stepHours)
	}
	if math.Abs(float64(steps)*stepHours-hours) > 1e-6 {
		return Horizon{}, InputError("horizon", "%v days is not a whole number of %v h intervals", days, stepHours)
	}
	return Horizon{Steps: steps, StepHours: stepHours, Days: days}, nil
}

// Hours is the total length of the period.
func (h Horizon) Hours() float64 { return float64(h.Steps) * h.StepHours }

// StepsPerHour is the number of intervals per hour.
func (h Horizon) StepsPerHour() float64 { return 1 / h.StepHours }

// AnnualScale rescales period totals to a 365.25-day year.
func (h Horizon) AnnualScale() float64 { return DaysPerYear / h.Days }

// StepDuration is the interval length as a time.Duration.
func (h Horizon) StepDuration() time.Duration {
	return time.Duration(h.StepHours * float64(time.Hour))
}

// Timestamps returns the start time of every interval beginning at start.
func (h Horizon) Timestamps(start time.Time) []time.Time {
	out := make([]time.Time, h.Steps)
	d := h.StepDuration()
	for i := range out {
		out[i] = start.Add(time.Duration(i) * d)
	}
	return out
}
