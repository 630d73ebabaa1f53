package sizing

import (
	"fmt"

	"energy-sizing/internal/lp"
	"energy-sizing/internal/model"
)

// Solution holds the solved decision variables.
// Units: capacities in MW / MWh, flows and SOC in MWh per interval.
type Solution struct {
	PVMW       float64 `json:"pv_mw"`
	WindMW     float64 `json:"wind_mw"`
	BatteryMWh float64 `json:"battery_mwh"`
	BatteryMW  float64 `json:"battery_mw"`

	Import    []float64 `json:"grid_import_mwh"`
	Export    []float64 `json:"grid_export_mwh"`
	Curtail   []float64 `json:"curtailment_mwh"`
	Charge    []float64 `json:"battery_charge_mwh"`
	Discharge []float64 `json:"battery_discharge_mwh"`
	SOC       []float64 `json:"soc_mwh"`

	Objective float64 `json:"objective"`
}

// Decode reads the solved values back into named series.
// Only Optimal results carry values; anything else is a solver-kind error.
func (m *Model) Decode(res *lp.Result) (*Solution, error) {
	if res == nil {
		return nil, &model.Error{Kind: model.KindSolver, Op: "decode", Err: fmt.Errorf("no solve result")}
	}
	if res.Status != lp.Optimal {
		return nil, &model.Error{Kind: model.KindSolver, Op: "decode", Err: fmt.Errorf("solver status %s", res.Status)}
	}
	if len(res.Values) != m.Problem.NumVars() {
		return nil, &model.Error{Kind: model.KindSolver, Op: "decode",
			Err: fmt.Errorf("result has %d values, model has %d variables", len(res.Values), m.Problem.NumVars())}
	}
	x := res.Values
	pick := func(idx []int) []float64 {
		out := make([]float64, len(idx))
		for i, v := range idx {
			out[i] = x[v]
		}
		return out
	}
	return &Solution{
		PVMW:       x[m.Vars.PV],
		WindMW:     x[m.Vars.Wind],
		BatteryMWh: x[m.Vars.BatteryEnergy],
		BatteryMW:  x[m.Vars.BatteryPower],
		Import:     pick(m.Vars.Import),
		Export:     pick(m.Vars.Export),
		Curtail:    pick(m.Vars.Curtail),
		Charge:     pick(m.Vars.Charge),
		Discharge:  pick(m.Vars.Discharge),
		SOC:        pick(m.Vars.SOC),
		Objective:  res.Objective,
	}, nil
}

// Generation returns PV plus wind output of interval t.
func (m *Model) Generation(s *Solution, t int) float64 {
	return m.Profiles.PVYield[t]*s.PVMW + m.Profiles.WindYield[t]*s.WindMW
}
