// Package sizing formulates the capacity-sizing and dispatch linear program.
package sizing

import (
	"errors"
	"fmt"
	"strconv"

	"energy-sizing/internal/finance"
	"energy-sizing/internal/lp"
	"energy-sizing/internal/model"
)

// Layout maps every decision variable to its column in the problem.
// SOC has one more entry than the per-step sequences: index t is the state at the
// start of interval t and index Steps the state at the end of the horizon.
type Layout struct {
	PV            int
	Wind          int
	BatteryEnergy int
	BatteryPower  int

	Import    []int
	Export    []int
	Curtail   []int
	Charge    []int
	Discharge []int
	SOC       []int
}

// Model is a built problem together with everything needed to interpret its solution.
type Model struct {
	Horizon  model.Horizon
	Profiles model.Profiles
	Params   model.Params

	Problem *lp.Problem
	Vars    Layout

	AnnuityPVWind  float64
	AnnuityBattery float64
	Legs           model.StorageLegs

	Diagnostics []model.Diagnostic
}

// Build validates the inputs and formulates the problem.
//
// Objective: annualised CAPEX of PV and wind (per MW) and battery power (per MW),
// annual OPEX of PV and wind (per MW) and battery energy (per MWh), plus grid
// import cost minus feed-in revenue summed over the simulated period. The grid
// terms are deliberately not rescaled to a year.
func Build(h model.Horizon, prof model.Profiles, params model.Params) (*Model, error) {
	if h.StepHours <= 0 {
		return nil, model.InputError("build", "time resolution must be > 0 hours, got %v", h.StepHours)
	}
	if err := prof.Validate(h); err != nil {
		return nil, err
	}
	if err := params.Validate(h); err != nil {
		return nil, err
	}

	m := &Model{Horizon: h, Profiles: prof, Params: params}
	m.Legs, m.Diagnostics = model.SplitRoundTrip(params.RoundTripEfficiency)
	m.AnnuityPVWind = m.annuity("pv/wind annuity", params.LifetimePVWindYears)
	m.AnnuityBattery = m.annuity("battery annuity", params.LifetimeBatteryYears)

	m.Problem = lp.NewProblem("energy_system_sizing")
	m.addVariables()
	m.addObjective()
	m.addConstraints()
	return m, nil
}

func (m *Model) annuity(source string, years int) float64 {
	af, err := finance.AnnuityFactor(m.Params.DiscountRate, years)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, finance.ErrOverflow) {
			msg = fmt.Sprintf("annuity factor overflowed for rate %v over %d years, using 0", m.Params.DiscountRate, years)
		}
		m.Diagnostics = append(m.Diagnostics, model.Diagnostic{Kind: model.KindNumeric, Source: source, Message: msg})
	}
	return af
}

func (m *Model) addVariables() {
	p := m.Problem
	n := m.Horizon.Steps
	m.Vars = Layout{
		PV:            p.AddVar("pv_mw"),
		Wind:          p.AddVar("wind_mw"),
		BatteryEnergy: p.AddVar("battery_mwh"),
		BatteryPower:  p.AddVar("battery_mw"),
		Import:        p.AddVars("grid_import", n),
		Export:        p.AddVars("grid_export", n),
		Curtail:       p.AddVars("curtailment", n),
		Charge:        p.AddVars("battery_charge", n),
		Discharge:     p.AddVars("battery_discharge", n),
		SOC:           p.AddVars("soc", n+1),
	}

	limits := m.Params.Limits
	for _, l := range []struct {
		v     int
		limit *float64
	}{
		{m.Vars.PV, limits.PVMW},
		{m.Vars.Wind, limits.WindMW},
		{m.Vars.BatteryEnergy, limits.BatteryMWh},
		{m.Vars.BatteryPower, limits.BatteryMW},
	} {
		if l.limit != nil {
			p.SetUpper(l.v, *l.limit)
		}
	}
}

func (m *Model) addObjective() {
	p, v, c := m.Problem, m.Vars, m.Params
	p.AddObjective(v.PV, m.AnnuityPVWind*c.PV.CapexPerMW+c.PV.OpexPerMWYear)
	p.AddObjective(v.Wind, m.AnnuityPVWind*c.Wind.CapexPerMW+c.Wind.OpexPerMWYear)
	p.AddObjective(v.BatteryPower, m.AnnuityBattery*c.BatteryCapexPerMW)
	p.AddObjective(v.BatteryEnergy, c.BatteryOpexPerMWhYear)
	for t := 0; t < m.Horizon.Steps; t++ {
		p.AddObjective(v.Import[t], c.GridPurchasePrice)
		p.AddObjective(v.Export[t], -c.FeedInTariff[t])
	}
}

// addConstraints adds every row and records a starting basis in which the grid
// covers demand and storage stays empty.
func (m *Model) addConstraints() {
	p, v := m.Problem, m.Vars
	n := m.Horizon.Steps
	dt := m.Horizon.StepHours
	var hint []int
	row := func(name string, t int, basic int, sense lp.Sense, rhs float64, terms ...lp.Term) {
		p.AddConstraint(name+"_"+strconv.Itoa(t), sense, rhs, terms...)
		hint = append(hint, basic)
	}

	for t := 0; t < n; t++ {
		row("balance", t, v.Import[t], lp.Equal, m.Profiles.Demand[t],
			lp.Term{Var: v.PV, Coef: m.Profiles.PVYield[t]},
			lp.Term{Var: v.Wind, Coef: m.Profiles.WindYield[t]},
			lp.Term{Var: v.Import[t], Coef: 1},
			lp.Term{Var: v.Discharge[t], Coef: 1},
			lp.Term{Var: v.Export[t], Coef: -1},
			lp.Term{Var: v.Curtail[t], Coef: -1},
			lp.Term{Var: v.Charge[t], Coef: -1},
		)
		row("soc", t, v.SOC[t+1], lp.Equal, 0,
			lp.Term{Var: v.SOC[t+1], Coef: 1},
			lp.Term{Var: v.SOC[t], Coef: -1},
			lp.Term{Var: v.Charge[t], Coef: -m.Legs.Charge},
			lp.Term{Var: v.Discharge[t], Coef: m.Legs.DischargeInverse},
		)
		row("charge_limit", t, lp.SlackBasis, lp.LessEqual, 0,
			lp.Term{Var: v.Charge[t], Coef: 1},
			lp.Term{Var: v.BatteryPower, Coef: -dt},
		)
		row("discharge_limit", t, lp.SlackBasis, lp.LessEqual, 0,
			lp.Term{Var: v.Discharge[t], Coef: 1},
			lp.Term{Var: v.BatteryPower, Coef: -dt},
		)
	}

	for t := 0; t <= n; t++ {
		row("soc_max", t, lp.SlackBasis, lp.LessEqual, 0,
			lp.Term{Var: v.SOC[t], Coef: 1},
			lp.Term{Var: v.BatteryEnergy, Coef: -1},
		)
		row("soc_min", t, lp.SlackBasis, lp.LessEqual, 0,
			lp.Term{Var: v.BatteryEnergy, Coef: m.Params.MinSOCFraction},
			lp.Term{Var: v.SOC[t], Coef: -1},
		)
	}

	// With soc[0] non-basic the cyclic row needs a storage flow in the basis;
	// the charge leg is zero when efficiency is zero.
	cyclicBasic := v.Charge[0]
	if m.Legs.Charge == 0 {
		cyclicBasic = v.Discharge[0]
	}
	p.AddConstraint("soc_cyclic", lp.Equal, 0,
		lp.Term{Var: v.SOC[n], Coef: 1},
		lp.Term{Var: v.SOC[0], Coef: -1},
	)
	hint = append(hint, cyclicBasic)
	p.BasisHint = hint
}
