package study

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"energy-sizing/internal/analysis"
	"energy-sizing/internal/model"
)

// Money rounds a currency amount to cents.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// WriteSummary prints a human-readable study summary.
func WriteSummary(out io.Writer, o *Outcome) error {
	if o == nil {
		return fmt.Errorf("outcome is nil")
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	line := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\n", args...)
	}

	line("Study\t%s", o.ID)
	if o.Name != "" {
		line("Name\t%s", o.Name)
	}
	line("Horizon\t%d intervals of %g h (%g days)", o.Steps, o.StepHours, o.Days)
	line("Solver\t%s\t%s in %s", o.Solver, o.Status, o.SolveTime.Round(1e6))
	line("Zero-tariff intervals\t%d", o.ZeroTariffSteps)

	if !o.Optimal() || o.Report == nil {
		line("")
		line("No optimal solution; nothing to report.")
		return w.Flush()
	}
	r := o.Report

	line("")
	line("Capacities")
	line("  PV\t%.3f MW", r.Capacities.PVMW)
	line("  Wind\t%.3f MW\t(%.1f turbines)", r.Capacities.WindMW, r.Capacities.WindTurbines)
	line("  Battery energy\t%.3f MWh", r.Capacities.BatteryMWh)
	line("  Battery power\t%.3f MW", r.Capacities.BatteryMW)

	c := r.Costs
	line("")
	line("Annual costs")
	line("  PV CAPEX\t%s", Money(c.PVCapex).StringFixed(2))
	line("  Wind CAPEX\t%s", Money(c.WindCapex).StringFixed(2))
	line("  Battery CAPEX\t%s", Money(c.BatteryCapex).StringFixed(2))
	line("  PV OPEX\t%s", Money(c.PVOpex).StringFixed(2))
	line("  Wind OPEX\t%s", Money(c.WindOpex).StringFixed(2))
	line("  Battery OPEX\t%s", Money(c.BatteryOpex).StringFixed(2))
	line("Period grid")
	line("  Import cost\t%s", Money(c.GridCost).StringFixed(2))
	line("  Feed-in revenue\t%s", Money(c.FeedInRevenue).StringFixed(2))
	line("Objective\t%s", Money(r.Objective).StringFixed(2))
	line("Recomputed total\t%s", Money(c.Total).StringFixed(2))

	e := r.Energy
	line("")
	line("Energy (period)")
	line("  Demand\t%.3f MWh", e.Demand)
	line("  PV\t%.3f MWh", e.PV)
	line("  Wind\t%.3f MWh", e.Wind)
	line("  Grid import\t%.3f MWh", e.Import)
	line("  Grid export\t%.3f MWh", e.Export)
	line("  Curtailment\t%.3f MWh", e.Curtailment)
	line("  Battery charge\t%.3f MWh", e.Charge)
	line("  Battery discharge\t%.3f MWh", e.Discharge)

	line("")
	line("LCOE\t%s", moneyRatio(r.LCOE))
	line("System LCOE\t%s", moneyRatio(r.SystemLCOE))
	line("Self-sufficiency\t%s", percent(r.SelfSufficiency))
	line("Renewable coverage\t%s", percent(r.RenewableCoverage))

	if counts := ActionCounts(o.Ledger); len(counts) > 0 {
		line("")
		line("Battery intervals\tcharging %d, idle %d, discharging %d",
			counts[model.ActionCharging], counts[model.ActionIdle], counts[model.ActionDischarging])
	}

	if len(r.Warnings) > 0 {
		line("")
		line("Warnings")
		for _, wn := range r.Warnings {
			line("  %s\t%s", wn.Check, wn.Message)
		}
	}
	if len(r.Diagnostics) > 0 {
		line("")
		line("Diagnostics")
		for _, d := range r.Diagnostics {
			line("  %s\t%s", d.Source, d.Message)
		}
	}
	return w.Flush()
}

func moneyRatio(r analysis.Ratio) string {
	if !r.Computable {
		return r.String()
	}
	return Money(r.Value).StringFixed(2) + " per MWh"
}

func percent(r analysis.Ratio) string {
	if !r.Computable {
		return r.String()
	}
	return decimal.NewFromFloat(r.Value*100).StringFixed(1) + " %"
}
