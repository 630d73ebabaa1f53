// Package analysis derives costs, energy totals and ratios from a solved study
// and cross-checks them against the solver's objective.
package analysis

import (
	"fmt"
	"math"

	"energy-sizing/internal/lp"
	"energy-sizing/internal/model"
	"energy-sizing/internal/sizing"
)

const (
	// ratioEpsilon is the smallest denominator a ratio is computed for.
	ratioEpsilon = 1e-6
	// DefaultTurbineMW is the rating used to express wind capacity as turbines.
	DefaultTurbineMW = 6.8
)

// Options tunes Analyze. Zero values fall back to the defaults.
type Options struct {
	ObjectiveTolerance float64
	BalanceTolerance   float64
	TurbineMW          float64
}

func DefaultOptions() Options {
	return Options{ObjectiveTolerance: 1, BalanceTolerance: 1, TurbineMW: DefaultTurbineMW}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ObjectiveTolerance <= 0 {
		o.ObjectiveTolerance = d.ObjectiveTolerance
	}
	if o.BalanceTolerance <= 0 {
		o.BalanceTolerance = d.BalanceTolerance
	}
	if o.TurbineMW <= 0 {
		o.TurbineMW = d.TurbineMW
	}
	return o
}

// Ratio is a quotient that may be undefined when its denominator is ~0.
type Ratio struct {
	Value      float64 `json:"value"`
	Computable bool    `json:"computable"`
}

func ratio(num, den float64) Ratio {
	if math.Abs(den) <= ratioEpsilon {
		return Ratio{}
	}
	return Ratio{Value: num / den, Computable: true}
}

func (r Ratio) String() string {
	if !r.Computable {
		return "not computable"
	}
	return fmt.Sprintf("%.4f", r.Value)
}

// Capacities are the optimal installed sizes.
type Capacities struct {
	PVMW       float64 `json:"pv_mw"`
	WindMW     float64 `json:"wind_mw"`
	BatteryMWh float64 `json:"battery_mwh"`
	BatteryMW  float64 `json:"battery_mw"`
	// WindTurbines is WindMW expressed in turbines of Options.TurbineMW.
	WindTurbines float64 `json:"wind_turbines"`
}

// CostBreakdown recomputes every objective term from the solved values.
// CAPEX and OPEX are per year; grid cost and feed-in revenue cover the simulated period.
type CostBreakdown struct {
	PVCapex      float64 `json:"pv_capex"`
	WindCapex    float64 `json:"wind_capex"`
	BatteryCapex float64 `json:"battery_capex"`
	PVOpex       float64 `json:"pv_opex"`
	WindOpex     float64 `json:"wind_opex"`
	BatteryOpex  float64 `json:"battery_opex"`

	AnnualizedCapex float64 `json:"annualized_capex"`
	AnnualOpex      float64 `json:"annual_opex"`

	GridCost      float64 `json:"grid_cost_period"`
	FeedInRevenue float64 `json:"feed_in_revenue_period"`

	// Total is what the objective should equal.
	Total float64 `json:"total"`
	// NetGridCostAnnual is (GridCost - FeedInRevenue) rescaled to a standard year.
	NetGridCostAnnual float64 `json:"net_grid_cost_annual"`
}

// EnergyTotals are period sums in MWh.
type EnergyTotals struct {
	Demand      float64 `json:"demand"`
	PV          float64 `json:"pv"`
	Wind        float64 `json:"wind"`
	Generation  float64 `json:"generation"`
	Import      float64 `json:"grid_import"`
	Export      float64 `json:"grid_export"`
	Curtailment float64 `json:"curtailment"`
	Charge      float64 `json:"battery_charge"`
	Discharge   float64 `json:"battery_discharge"`
	Sources     float64 `json:"sources"`
	Sinks       float64 `json:"sinks"`
	SOCStart    float64 `json:"soc_start"`
	SOCEnd      float64 `json:"soc_end"`
	// AnnualDemand is Demand rescaled to a 365.25-day year.
	AnnualDemand float64 `json:"annual_demand"`
}

// Residuals are the differences the consistency checks compare against tolerances.
type Residuals struct {
	// Objective is reported minus recomputed objective.
	Objective float64 `json:"objective"`
	// Balance is (sources - sinks) minus (soc end - soc start).
	Balance float64 `json:"balance"`
}

// Warning is a failed consistency check. It does not invalidate the report.
type Warning struct {
	Check     string  `json:"check"`
	Residual  float64 `json:"residual"`
	Tolerance float64 `json:"tolerance"`
	Message   string  `json:"message"`
}

// Report holds every derived metric of one solved study.
type Report struct {
	Objective  float64       `json:"objective"`
	Capacities Capacities    `json:"capacities"`
	Costs      CostBreakdown `json:"costs"`
	Energy     EnergyTotals  `json:"energy"`

	LCOE              Ratio `json:"lcoe"`
	SystemLCOE        Ratio `json:"system_lcoe"`
	SelfSufficiency   Ratio `json:"self_sufficiency"`
	RenewableCoverage Ratio `json:"renewable_coverage"`

	Residuals   Residuals          `json:"residuals"`
	Warnings    []Warning          `json:"warnings,omitempty"`
	Diagnostics []model.Diagnostic `json:"diagnostics,omitempty"`
	Inputs      InputStats         `json:"inputs"`
}

// Consistent reports whether both consistency checks passed.
func (r *Report) Consistent() bool { return len(r.Warnings) == 0 }

// Analyze recomputes the study's economics from an optimal result.
// A non-optimal result is a solver-kind error; there is nothing to analyse.
func Analyze(m *sizing.Model, res *lp.Result, opts Options) (*Report, error) {
	if m == nil {
		return nil, fmt.Errorf("analyze: nil model")
	}
	sol, err := m.Decode(res)
	if err != nil {
		return nil, err
	}
	return AnalyzeSolution(m, sol, opts)
}

// AnalyzeSolution is Analyze for a solution the caller has already decoded.
func AnalyzeSolution(m *sizing.Model, sol *sizing.Solution, opts Options) (*Report, error) {
	if m == nil || sol == nil {
		return nil, fmt.Errorf("analyze: nil model or solution")
	}
	if len(sol.Import) != m.Horizon.Steps || len(sol.SOC) != m.Horizon.Steps+1 {
		return nil, fmt.Errorf("analyze: solution has %d steps, model has %d", len(sol.Import), m.Horizon.Steps)
	}
	opts = opts.withDefaults()
	p := m.Params
	scale := m.Horizon.AnnualScale()

	r := &Report{
		Objective: sol.Objective,
		Capacities: Capacities{
			PVMW:         sol.PVMW,
			WindMW:       sol.WindMW,
			BatteryMWh:   sol.BatteryMWh,
			BatteryMW:    sol.BatteryMW,
			WindTurbines: sol.WindMW / opts.TurbineMW,
		},
		Diagnostics: append([]model.Diagnostic(nil), m.Diagnostics...),
		Inputs:      ComputeInputStats(m.Profiles),
	}

	c := &r.Costs
	c.PVCapex = sol.PVMW * m.AnnuityPVWind * p.PV.CapexPerMW
	c.WindCapex = sol.WindMW * m.AnnuityPVWind * p.Wind.CapexPerMW
	c.BatteryCapex = sol.BatteryMW * m.AnnuityBattery * p.BatteryCapexPerMW
	c.PVOpex = sol.PVMW * p.PV.OpexPerMWYear
	c.WindOpex = sol.WindMW * p.Wind.OpexPerMWYear
	c.BatteryOpex = sol.BatteryMWh * p.BatteryOpexPerMWhYear
	c.AnnualizedCapex = c.PVCapex + c.WindCapex + c.BatteryCapex
	c.AnnualOpex = c.PVOpex + c.WindOpex + c.BatteryOpex

	e := &r.Energy
	for t := 0; t < m.Horizon.Steps; t++ {
		c.GridCost += sol.Import[t] * p.GridPurchasePrice
		c.FeedInRevenue += sol.Export[t] * p.FeedInTariff[t]

		e.Demand += m.Profiles.Demand[t]
		e.PV += m.Profiles.PVYield[t] * sol.PVMW
		e.Wind += m.Profiles.WindYield[t] * sol.WindMW
		e.Import += sol.Import[t]
		e.Export += sol.Export[t]
		e.Curtailment += sol.Curtail[t]
		e.Charge += sol.Charge[t]
		e.Discharge += sol.Discharge[t]
	}
	c.Total = c.AnnualizedCapex + c.AnnualOpex + c.GridCost - c.FeedInRevenue
	c.NetGridCostAnnual = (c.GridCost - c.FeedInRevenue) * scale

	e.Generation = e.PV + e.Wind
	e.Sources = e.Generation + e.Import + e.Discharge
	e.Sinks = e.Demand + e.Export + e.Curtailment + e.Charge
	e.SOCStart = sol.SOC[0]
	e.SOCEnd = sol.SOC[len(sol.SOC)-1]
	e.AnnualDemand = e.Demand * scale

	r.Residuals.Objective = sol.Objective - c.Total
	r.Residuals.Balance = (e.Sources - e.Sinks) - (e.SOCEnd - e.SOCStart)
	if math.Abs(r.Residuals.Objective) >= opts.ObjectiveTolerance {
		r.Warnings = append(r.Warnings, Warning{
			Check:     "objective",
			Residual:  r.Residuals.Objective,
			Tolerance: opts.ObjectiveTolerance,
			Message:   fmt.Sprintf("reported objective %.2f differs from recomputed %.2f", sol.Objective, c.Total),
		})
	}
	if math.Abs(r.Residuals.Balance) >= opts.BalanceTolerance {
		r.Warnings = append(r.Warnings, Warning{
			Check:     "energy_balance",
			Residual:  r.Residuals.Balance,
			Tolerance: opts.BalanceTolerance,
			Message: fmt.Sprintf("sources - sinks = %.4f MWh but SOC changed by %.4f MWh",
				e.Sources-e.Sinks, e.SOCEnd-e.SOCStart),
		})
	}

	annualCost := c.AnnualizedCapex + c.AnnualOpex
	r.LCOE = ratio(annualCost, e.AnnualDemand)
	r.SystemLCOE = ratio(annualCost+c.NetGridCostAnnual, e.AnnualDemand)
	r.SelfSufficiency = ratio(e.Demand-e.Import, e.Demand)
	r.RenewableCoverage = ratio(e.Generation, e.Demand)
	return r, nil
}
