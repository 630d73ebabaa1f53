package profiles

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"

	"energy-sizing/internal/model"
)

// SolarSite locates a synthetic PV profile.
type SolarSite struct {
	Latitude  float64
	Longitude float64
	Start     time.Time
	// PerformanceRatio scales clear-sky output for losses and weather.
	PerformanceRatio float64
}

// SyntheticPV estimates per-MW PV yield from the sun's altitude at the middle of
// every interval: sin(altitude) * performance ratio * interval length.
func SyntheticPV(h model.Horizon, site SolarSite) ([]float64, error) {
	if site.Latitude < -90 || site.Latitude > 90 || site.Longitude < -180 || site.Longitude > 180 {
		return nil, model.InputError("synthetic pv", "invalid site %v,%v", site.Latitude, site.Longitude)
	}
	pr := site.PerformanceRatio
	if pr <= 0 || pr > 1 {
		return nil, model.InputError("synthetic pv", "performance ratio must be in (0, 1], got %v", pr)
	}
	half := h.StepDuration() / 2
	out := make([]float64, h.Steps)
	for i, ts := range h.Timestamps(site.Start) {
		pos := suncalc.GetPosition(ts.Add(half), site.Latitude, site.Longitude)
		if f := math.Sin(pos.Altitude); f > 0 {
			out[i] = f * pr * h.StepHours
		}
	}
	return out, nil
}
