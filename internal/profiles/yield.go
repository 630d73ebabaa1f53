// Package profiles produces the time series a study runs on: yield data read from
// CSV or synthesised, demand, and the feed-in tariff.
package profiles

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"energy-sizing/internal/model"
)

// Reference installations assumed when a yield file carries no capacity columns.
const (
	FallbackWindMW = 9294
	FallbackPVMW   = 1674

	minInstalledMW = 1e-6
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

// YieldData is a yield file normalised to MWh per installed MW per interval.
type YieldData struct {
	Timestamps []time.Time
	PVYield    []float64
	WindYield  []float64

	InstalledPVMW   float64
	InstalledWindMW float64
	// Clamped counts negative yields replaced by zero.
	Clamped     int
	Diagnostics []model.Diagnostic
}

// LoadYieldCSV reads a yield file from disk.
func LoadYieldCSV(path string, h model.Horizon) (*YieldData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.InputError("yield csv", "open %s: %v", path, err)
	}
	defer f.Close()
	return ReadYieldCSV(f, h)
}

// ReadYieldCSV parses a yield table with a header row and the columns
//
//	timestamp, wind MWh, PV MWh[, installed wind MW, installed PV MW]
//
// The installed capacities are read from the first data row. When present the
// yields are divided by them; when absent the yields are taken as already
// specific and the reference capacities are recorded with a diagnostic.
// The table must have exactly h.Steps data rows.
func ReadYieldCSV(r io.Reader, h model.Horizon) (*YieldData, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, model.InputError("yield csv", "file is empty")
		}
		return nil, model.InputError("yield csv", "read header: %v", err)
	}
	if len(header) < 3 {
		return nil, model.InputError("yield csv", "expected at least 3 columns (timestamp, wind, pv), got %d", len(header))
	}
	withCaps := len(header) >= 5

	d := &YieldData{
		Timestamps: make([]time.Time, 0, h.Steps),
		PVYield:    make([]float64, 0, h.Steps),
		WindYield:  make([]float64, 0, h.Steps),
	}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, model.InputError("yield csv", "line %d: %v", line, err)
		}
		if len(rec) < 3 {
			return nil, model.InputError("yield csv", "line %d: expected at least 3 columns, got %d", line, len(rec))
		}
		ts, err := parseTimestamp(rec[0])
		if err != nil {
			return nil, model.InputError("yield csv", "line %d: %v", line, err)
		}
		wind, err := parseNumber(rec[1])
		if err != nil {
			return nil, model.InputError("yield csv", "line %d wind: %v", line, err)
		}
		pv, err := parseNumber(rec[2])
		if err != nil {
			return nil, model.InputError("yield csv", "line %d pv: %v", line, err)
		}
		if withCaps && len(d.WindYield) == 0 {
			if len(rec) < 5 {
				return nil, model.InputError("yield csv", "line %d: installed capacity columns are empty", line)
			}
			if d.InstalledWindMW, err = parseNumber(rec[3]); err != nil {
				return nil, model.InputError("yield csv", "line %d installed wind: %v", line, err)
			}
			if d.InstalledPVMW, err = parseNumber(rec[4]); err != nil {
				return nil, model.InputError("yield csv", "line %d installed pv: %v", line, err)
			}
			if d.InstalledWindMW <= minInstalledMW || d.InstalledPVMW <= minInstalledMW {
				return nil, model.InputError("yield csv", "installed capacity must be > 0 (wind %v MW, pv %v MW)", d.InstalledWindMW, d.InstalledPVMW)
			}
		}
		d.Timestamps = append(d.Timestamps, ts)
		d.WindYield = append(d.WindYield, wind)
		d.PVYield = append(d.PVYield, pv)
	}

	if len(d.WindYield) != h.Steps {
		return nil, model.InputError("yield csv", "file has %d data rows, expected %d for %v days at %v h", len(d.WindYield), h.Steps, h.Days, h.StepHours)
	}

	if withCaps {
		for i := range d.WindYield {
			d.WindYield[i] /= d.InstalledWindMW
			d.PVYield[i] /= d.InstalledPVMW
		}
	} else {
		d.InstalledWindMW = FallbackWindMW
		d.InstalledPVMW = FallbackPVMW
		d.Diagnostics = append(d.Diagnostics, model.Diagnostic{
			Kind:    model.KindNumeric,
			Source:  "yield csv",
			Message: fmt.Sprintf("no installed capacity columns, treating yields as per-MW (reference wind %d MW, pv %d MW)", FallbackWindMW, FallbackPVMW),
		})
	}
	d.Clamped = model.ClampNonNegative(d.WindYield) + model.ClampNonNegative(d.PVYield)
	if d.Clamped > 0 {
		d.Diagnostics = append(d.Diagnostics, model.Diagnostic{
			Kind:    model.KindNumeric,
			Source:  "yield csv",
			Message: fmt.Sprintf("%d negative yield values clamped to 0", d.Clamped),
		})
	}
	return d, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// parseNumber accepts a decimal comma as written by spreadsheet exports.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite", s)
	}
	return v, nil
}
