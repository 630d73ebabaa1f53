package model

import "math"

// Technology holds per-MW cost assumptions for a generator.
// Units: CapexPerMW in currency per MW, OpexPerMWYear in currency per MW per year.
type Technology struct {
	CapexPerMW    float64
	OpexPerMWYear float64
}

// CapacityLimits optionally caps capacity variables. A nil field leaves the
// variable unbounded above; a zero value disables the technology.
type CapacityLimits struct {
	PVMW       *float64
	WindMW     *float64
	BatteryMWh *float64
	BatteryMW  *float64
}

// Params defines the techno-economic assumptions of a study.
// Units:
// - BatteryCapexPerMW: currency per MW of battery power
// - BatteryOpexPerMWhYear: currency per MWh of battery energy per year
// - DiscountRate: fraction per year
// - RoundTripEfficiency, MinSOCFraction: 0..1
// - GridPurchasePrice, FeedInTariff: currency per MWh
type Params struct {
	PV   Technology
	Wind Technology

	BatteryCapexPerMW     float64
	BatteryOpexPerMWhYear float64

	DiscountRate         float64
	LifetimePVWindYears  int
	LifetimeBatteryYears int

	RoundTripEfficiency float64
	MinSOCFraction      float64

	GridPurchasePrice float64
	FeedInTariff      []float64

	Limits CapacityLimits
}

// Validate checks the parameters that make a model unbuildable.
// Round-trip efficiency is not checked here: out-of-range values fall back to
// lossless storage with a diagnostic when the model is built.
func (p Params) Validate(h Horizon) error {
	if h.StepHours <= 0 {
		return InputError("params", "time resolution must be > 0 hours, got %v", h.StepHours)
	}
	if p.MinSOCFraction < 0 || p.MinSOCFraction > 1 || math.IsNaN(p.MinSOCFraction) {
		return InputError("params", "min SOC fraction must be in [0, 1], got %v", p.MinSOCFraction)
	}
	if len(p.FeedInTariff) != h.Steps {
		return InputError("params", "feed-in tariff has %d values, expected %d", len(p.FeedInTariff), h.Steps)
	}
	costs := []struct {
		name string
		v    float64
	}{
		{"pv capex", p.PV.CapexPerMW},
		{"pv opex", p.PV.OpexPerMWYear},
		{"wind capex", p.Wind.CapexPerMW},
		{"wind opex", p.Wind.OpexPerMWYear},
		{"battery capex", p.BatteryCapexPerMW},
		{"battery opex", p.BatteryOpexPerMWhYear},
		{"grid purchase price", p.GridPurchasePrice},
	}
	for _, c := range costs {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return InputError("params", "%s must be finite, got %v", c.name, c.v)
		}
	}
	for t, v := range p.FeedInTariff {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return InputError("params", "feed-in tariff[%d] must be finite, got %v", t, v)
		}
	}
	limits := []struct {
		name string
		v    *float64
	}{
		{"pv", p.Limits.PVMW},
		{"wind", p.Limits.WindMW},
		{"battery energy", p.Limits.BatteryMWh},
		{"battery power", p.Limits.BatteryMW},
	}
	for _, l := range limits {
		if l.v != nil && (*l.v < 0 || math.IsNaN(*l.v)) {
			return InputError("params", "%s capacity limit must be >= 0, got %v", l.name, *l.v)
		}
	}
	return nil
}

// Limit returns a pointer to v, for building CapacityLimits literals.
func Limit(v float64) *float64 { return &v }
