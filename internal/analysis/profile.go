package analysis

import (
	"math"
	"sort"

	"energy-sizing/internal/model"
)

// SeriesStats summarises one input series.
type SeriesStats struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P05   float64 `json:"p05"`
	P95   float64 `json:"p95"`
}

// InputStats describes the profiles a study was run on.
// Full-load hours are period yield per installed MW, the usual sanity check for
// yield data (roughly 1000 h for PV and 2000 h or more for wind in central Europe).
type InputStats struct {
	Demand            SeriesStats `json:"demand_mwh"`
	PVYield           SeriesStats `json:"pv_yield_mwh_per_mw"`
	WindYield         SeriesStats `json:"wind_yield_mwh_per_mw"`
	PVFullLoadHours   float64     `json:"pv_full_load_hours"`
	WindFullLoadHours float64     `json:"wind_full_load_hours"`
}

func ComputeInputStats(prof model.Profiles) InputStats {
	s := InputStats{
		Demand:    ComputeSeriesStats(prof.Demand),
		PVYield:   ComputeSeriesStats(prof.PVYield),
		WindYield: ComputeSeriesStats(prof.WindYield),
	}
	s.PVFullLoadHours = s.PVYield.Total
	s.WindFullLoadHours = s.WindYield.Total
	return s
}

func ComputeSeriesStats(values []float64) SeriesStats {
	s := SeriesStats{}
	if len(values) == 0 {
		return s
	}
	s.Count = len(values)

	minv := math.Inf(1)
	maxv := math.Inf(-1)
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		sorted = append(sorted, v)
		s.Total += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
	}
	sort.Float64s(sorted)
	s.Min = minv
	s.Max = maxv
	s.Mean = s.Total / float64(len(values))
	s.P05 = percentileSorted(sorted, 0.05)
	s.P95 = percentileSorted(sorted, 0.95)
	return s
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
