package finance

import (
	"errors"
	"math"
)

// MinRate is the smallest discount rate used in the annuity formula.
// Positive rates below it are raised to it; a rate of exactly zero takes the
// straight-line path instead.
const MinRate = 1e-9

// ErrOverflow is returned when (1+rate)^years is not representable.
var ErrOverflow = errors.New("annuity factor overflow")

// AnnuityFactor converts a one-time capital cost into an equivalent uniform
// annual payment over years at the given discount rate.
//
// years <= 0 yields 0 (no annualised cost). rate == 0 yields 1/years.
// On overflow the factor is 0 and ErrOverflow is returned; callers should treat
// that as a diagnostic, not as a free asset.
func AnnuityFactor(rate float64, years int) (float64, error) {
	if years <= 0 {
		return 0, nil
	}
	n := float64(years)
	if rate == 0 {
		return 1 / n, nil
	}
	if rate < MinRate {
		rate = MinRate
	}

	qn := math.Pow(1+rate, n)
	if math.IsInf(qn, 0) || math.IsNaN(qn) {
		return 0, ErrOverflow
	}
	denominator := qn - 1
	if math.Abs(denominator) < 1e-9 {
		return 1 / n, nil
	}
	f := rate * qn / denominator
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, ErrOverflow
	}
	return f, nil
}

// Annualize returns capex * AnnuityFactor(rate, years).
func Annualize(capex, rate float64, years int) (float64, error) {
	f, err := AnnuityFactor(rate, years)
	if err != nil {
		return 0, err
	}
	return capex * f, nil
}
