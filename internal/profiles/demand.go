package profiles

import (
	"math"

	"energy-sizing/internal/model"
)

// ConstantDemand spreads a flat load given in kWh per hour over the horizon,
// returning MWh per interval.
func ConstantDemand(h model.Horizon, kWhPerHour float64) ([]float64, error) {
	if kWhPerHour < 0 || math.IsNaN(kWhPerHour) || math.IsInf(kWhPerHour, 0) {
		return nil, model.InputError("demand", "demand must be a finite value >= 0 kWh/h, got %v", kWhPerHour)
	}
	return ConstantYield(h, kWhPerHour*h.StepHours/1000), nil
}

// ConstantYield returns a series of length h.Steps holding v.
func ConstantYield(h model.Horizon, v float64) []float64 {
	out := make([]float64, h.Steps)
	for i := range out {
		out[i] = v
	}
	return out
}
