package study

import (
	"time"

	"energy-sizing/internal/model"
	"energy-sizing/internal/sizing"
)

// DispatchRow is one row of per-interval output.
// This is the primary artifact for "what happened" in a study.
// Energies are MWh within the interval; money is in the cost currency.
type DispatchRow struct {
	Index int `json:"index"`

	IntervalStart time.Time `json:"interval_start"`
	IntervalEnd   time.Time `json:"interval_end"`

	DemandMWh float64 `json:"demand_mwh"`
	PVMWh     float64 `json:"pv_mwh"`
	WindMWh   float64 `json:"wind_mwh"`

	ImportMWh      float64 `json:"grid_import_mwh"`
	ExportMWh      float64 `json:"grid_export_mwh"`
	CurtailmentMWh float64 `json:"curtailment_mwh"`

	Action       model.Action `json:"action"`
	ChargeMWh    float64      `json:"battery_charge_mwh"`
	DischargeMWh float64      `json:"battery_discharge_mwh"`
	SOCStartMWh  float64      `json:"soc_start_mwh"`
	SOCEndMWh    float64      `json:"soc_end_mwh"`

	FeedInTariff  float64 `json:"feed_in_tariff"`
	GridCost      float64 `json:"grid_cost"`
	FeedInRevenue float64 `json:"feed_in_revenue"`
	NetGridCost   float64 `json:"net_grid_cost"`
	CumNetCost    float64 `json:"cum_net_grid_cost"`
}

// BuildLedger lays the solution out interval by interval. timestamps may be nil
// or shorter than the horizon; missing times stay zero.
func BuildLedger(m *sizing.Model, sol *sizing.Solution, timestamps []time.Time) []DispatchRow {
	if m == nil || sol == nil {
		return nil
	}
	n := m.Horizon.Steps
	step := m.Horizon.StepDuration()
	price := m.Params.GridPurchasePrice
	ledger := make([]DispatchRow, 0, n)
	cum := 0.0

	for t := 0; t < n; t++ {
		tariff := m.Params.FeedInTariff[t]
		cost := sol.Import[t] * price
		revenue := sol.Export[t] * tariff
		cum += cost - revenue

		row := DispatchRow{
			Index: t,

			DemandMWh: m.Profiles.Demand[t],
			PVMWh:     m.Profiles.PVYield[t] * sol.PVMW,
			WindMWh:   m.Profiles.WindYield[t] * sol.WindMW,

			ImportMWh:      sol.Import[t],
			ExportMWh:      sol.Export[t],
			CurtailmentMWh: sol.Curtail[t],

			Action:       model.ActionFromFlows(sol.Charge[t], sol.Discharge[t]),
			ChargeMWh:    sol.Charge[t],
			DischargeMWh: sol.Discharge[t],
			SOCStartMWh:  sol.SOC[t],
			SOCEndMWh:    sol.SOC[t+1],

			FeedInTariff:  tariff,
			GridCost:      cost,
			FeedInRevenue: revenue,
			NetGridCost:   cost - revenue,
			CumNetCost:    cum,
		}
		if t < len(timestamps) && !timestamps[t].IsZero() {
			row.IntervalStart = timestamps[t]
			row.IntervalEnd = timestamps[t].Add(step)
		}
		ledger = append(ledger, row)
	}
	return ledger
}

// ActionCounts tallies intervals per battery action.
func ActionCounts(ledger []DispatchRow) map[model.Action]int {
	out := map[model.Action]int{}
	for _, r := range ledger {
		out[r.Action]++
	}
	return out
}
