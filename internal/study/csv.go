package study

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"
)

var dispatchHeader = []string{
	"index",
	"interval_start",
	"interval_end",
	"demand_mwh",
	"pv_mwh",
	"wind_mwh",
	"grid_import_mwh",
	"grid_export_mwh",
	"curtailment_mwh",
	"action",
	"battery_charge_mwh",
	"battery_discharge_mwh",
	"soc_start_mwh",
	"soc_end_mwh",
	"feed_in_tariff",
	"grid_cost",
	"feed_in_revenue",
	"net_grid_cost",
	"cum_net_grid_cost",
}

func WriteDispatchCSVFile(path string, ledger []DispatchRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteDispatchCSV(f, ledger); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func WriteDispatchCSV(out io.Writer, ledger []DispatchRow) error {
	w := csv.NewWriter(out)

	if err := w.Write(dispatchHeader); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			fmtTime(r.IntervalStart),
			fmtTime(r.IntervalEnd),
			fmtFloat(r.DemandMWh),
			fmtFloat(r.PVMWh),
			fmtFloat(r.WindMWh),
			fmtFloat(r.ImportMWh),
			fmtFloat(r.ExportMWh),
			fmtFloat(r.CurtailmentMWh),
			string(r.Action),
			fmtFloat(r.ChargeMWh),
			fmtFloat(r.DischargeMWh),
			fmtFloat(r.SOCStartMWh),
			fmtFloat(r.SOCEndMWh),
			fmtFloat(r.FeedInTariff),
			fmtFloat(r.GridCost),
			fmtFloat(r.FeedInRevenue),
			fmtFloat(r.NetGridCost),
			fmtFloat(r.CumNetCost),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
