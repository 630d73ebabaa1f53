package model

import "math"

// Profiles is the physical input to a study, aligned 1:1 with a Horizon.
// Units:
// - Demand: MWh per interval
// - PVYield, WindYield: MWh per installed MW per interval
type Profiles struct {
	Demand    []float64
	PVYield   []float64
	WindYield []float64
}

// Validate checks lengths against the horizon and rejects negative or
// non-finite values.
func (p Profiles) Validate(h Horizon) error {
	series := []struct {
		name string
		v    []float64
	}{
		{"demand", p.Demand},
		{"pv yield", p.PVYield},
		{"wind yield", p.WindYield},
	}
	for _, s := range series {
		if len(s.v) != h.Steps {
			return InputError("profiles", "%s has %d values, expected %d", s.name, len(s.v), h.Steps)
		}
		for i, x := range s.v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return InputError("profiles", "%s[%d] is not finite (%v)", s.name, i, x)
			}
			if x < 0 {
				return InputError("profiles", "%s[%d] is negative (%v)", s.name, i, x)
			}
		}
	}
	return nil
}

// ClampNonNegative replaces negative values with zero in place and returns the
// number of values changed.
func ClampNonNegative(v []float64) int {
	n := 0
	for i, x := range v {
		if x < 0 {
			v[i] = 0
			n++
		}
	}
	return n
}

// Sum adds all values of a series.
func Sum(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}
