package study

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-sizing/internal/analysis"
	"energy-sizing/internal/config"
	"energy-sizing/internal/lp"
	"energy-sizing/internal/model"
	"energy-sizing/internal/solver"
)

const tol = 1e-6

// singleCycle stores one quarter hour of PV output for the next interval's demand.
func singleCycle(t *testing.T) *Input {
	t.Helper()
	h, err := model.NewHorizon(0.25, 1.0/24)
	require.NoError(t, err)
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &Input{
		Name:    "single cycle",
		Horizon: h,
		Start:   start,
		Profiles: model.Profiles{
			Demand:    []float64{0, 1, 0, 0},
			PVYield:   []float64{1, 0, 0, 0},
			WindYield: []float64{0, 0, 0, 0},
		},
		Params: model.Params{
			PV:                    model.Technology{CapexPerMW: 10},
			Wind:                  model.Technology{CapexPerMW: 1000},
			BatteryCapexPerMW:     1,
			BatteryOpexPerMWhYear: 1,
			LifetimePVWindYears:   1,
			LifetimeBatteryYears:  1,
			RoundTripEfficiency:   1,
			GridPurchasePrice:     1000,
			FeedInTariff:          []float64{0, 0, 0, 0},
		},
		Timestamps: h.Timestamps(start),
	}
}

type stubSolver struct {
	res *lp.Result
	err error
}

func (s stubSolver) Name() string { return "stub" }

func (s stubSolver) Solve(context.Context, *lp.Problem) (*lp.Result, error) {
	return s.res, s.err
}

func TestEngineRunOptimal(t *testing.T) {
	e := New(&solver.Simplex{Logger: zerolog.Nop()}, analysis.DefaultOptions(), zerolog.Nop())
	out, err := e.Run(context.Background(), singleCycle(t))
	require.NoError(t, err)

	require.True(t, out.Optimal())
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "single cycle", out.Name)
	assert.Equal(t, solver.BackendSimplex, out.Solver)
	assert.Equal(t, 4, out.Steps)

	require.NotNil(t, out.Report)
	assert.True(t, out.Report.Consistent())
	assert.InDelta(t, 15, out.Report.Objective, tol)
	assert.InDelta(t, 1, out.Report.Capacities.PVMW, tol)
	require.NotNil(t, out.Solution)
	assert.Equal(t, out.Solution.PVMW, out.Report.Capacities.PVMW)
	assert.Equal(t, out.Solution.Objective, out.Report.Objective)

	require.Len(t, out.Ledger, 4)
	assert.Equal(t, model.ActionCharging, out.Ledger[0].Action)
	assert.Equal(t, model.ActionDischarging, out.Ledger[1].Action)
	assert.Equal(t, model.ActionIdle, out.Ledger[2].Action)
	assert.InDelta(t, 1, out.Ledger[0].PVMWh, tol)
	assert.InDelta(t, out.Ledger[0].SOCEndMWh, out.Ledger[1].SOCStartMWh, tol)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 15, 0, 0, time.UTC), out.Ledger[1].IntervalStart)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC), out.Ledger[1].IntervalEnd)
}

func TestEngineRunNonOptimalHasNoReport(t *testing.T) {
	for _, st := range []lp.Status{lp.Infeasible, lp.Unbounded, lp.Undefined, lp.NotSolved} {
		t.Run(st.String(), func(t *testing.T) {
			e := New(stubSolver{res: &lp.Result{Status: st}}, analysis.Options{}, zerolog.Nop())
			out, err := e.Run(context.Background(), singleCycle(t))
			require.NoError(t, err)
			assert.Equal(t, st, out.Status)
			assert.False(t, out.Optimal())
			assert.Nil(t, out.Report)
			assert.Nil(t, out.Ledger)
		})
	}
}

func TestEngineRunErrors(t *testing.T) {
	ctx := context.Background()

	_, err := New(nil, analysis.Options{}, zerolog.Nop()).Run(ctx, singleCycle(t))
	assert.Error(t, err)

	e := New(stubSolver{err: errors.New("binary exploded")}, analysis.Options{}, zerolog.Nop())
	_, err = e.Run(ctx, nil)
	assert.Error(t, err)

	_, err = e.Run(ctx, singleCycle(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binary exploded")

	bad := singleCycle(t)
	bad.Profiles.Demand = []float64{1}
	_, err = e.Run(ctx, bad)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindInput))
}

func TestEngineRunTimeout(t *testing.T) {
	var seen time.Time
	e := New(deadlineSolver{seen: &seen}, analysis.Options{}, zerolog.Nop())
	e.Timeout = time.Minute
	_, err := e.Run(context.Background(), singleCycle(t))
	require.NoError(t, err)
	assert.False(t, seen.IsZero())
}

type deadlineSolver struct{ seen *time.Time }

func (deadlineSolver) Name() string { return "deadline" }

func (d deadlineSolver) Solve(ctx context.Context, _ *lp.Problem) (*lp.Result, error) {
	*d.seen, _ = ctx.Deadline()
	return &lp.Result{Status: lp.NotSolved}, nil
}

func TestDispatchCSV(t *testing.T) {
	e := New(&solver.Simplex{Logger: zerolog.Nop()}, analysis.DefaultOptions(), zerolog.Nop())
	out, err := e.Run(context.Background(), singleCycle(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDispatchCSV(&buf, out.Ledger))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, dispatchHeader, records[0])
	assert.Equal(t, "0", records[1][0])
	assert.Equal(t, "2024-06-01T12:00:00Z", records[1][1])
	assert.Equal(t, "CHARGING", records[1][9])

	path := filepath.Join(t.TempDir(), "dispatch.csv")
	require.NoError(t, WriteDispatchCSVFile(path, out.Ledger))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "index,interval_start,"))
}

func TestSummary(t *testing.T) {
	e := New(&solver.Simplex{Logger: zerolog.Nop()}, analysis.DefaultOptions(), zerolog.Nop())
	out, err := e.Run(context.Background(), singleCycle(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, out))
	s := buf.String()
	assert.Contains(t, s, "Capacities")
	assert.Contains(t, s, "15.00")
	assert.Contains(t, s, "charging 1, idle 2, discharging 1")

	buf.Reset()
	require.NoError(t, WriteSummary(&buf, &Outcome{ID: "x", Status: lp.Infeasible}))
	assert.Contains(t, buf.String(), "No optimal solution")
	assert.Contains(t, buf.String(), "Infeasible")

	assert.Error(t, WriteSummary(&buf, nil))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "1234.57", Money(1234.5678).StringFixed(2))
	assert.Equal(t, "-0.10", Money(-0.1).StringFixed(2))
}

func TestReportJSONRoundTrip(t *testing.T) {
	e := New(&solver.Simplex{Logger: zerolog.Nop()}, analysis.DefaultOptions(), zerolog.Nop())
	out, err := e.Run(context.Background(), singleCycle(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteReportJSON(path, out))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"status": "Optimal"`)

	back, err := LoadReportJSON(path)
	require.NoError(t, err)
	assert.Equal(t, out.ID, back.ID)
	assert.Equal(t, lp.Optimal, back.Status)
	require.NotNil(t, back.Report)
	assert.InDelta(t, out.Report.Objective, back.Report.Objective, tol)
	assert.Nil(t, back.Ledger)

	_, err = LoadReportJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set(&Outcome{ID: "a"})
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)
	_, ok = c.Get("b")
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Prune())
	assert.Equal(t, 0, c.Len())

	c.Set(&Outcome{ID: "b"})
	c.Clear()
	assert.Equal(t, 0, c.Len())

	var nilCache *Cache
	nilCache.Set(&Outcome{ID: "x"})
	_, ok = nilCache.Get("x")
	assert.False(t, ok)
	assert.Equal(t, 0, nilCache.Prune())
}

func TestCacheRunStopsWithContext(t *testing.T) {
	c := NewCache(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLoadInputSynthetic(t *testing.T) {
	cfg := config.Default()
	cfg.Horizon.Days = 1
	cfg.Horizon.Start = time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	cfg.Input.Source = config.SourceSynthetic
	cfg.Grid.ZeroTariffHours = 2

	in, err := LoadInput(&cfg)
	require.NoError(t, err)
	assert.Equal(t, 96, in.Horizon.Steps)
	assert.Len(t, in.Profiles.PVYield, 96)
	assert.InDelta(t, 0.3*0.25, in.Profiles.WindYield[0], tol)
	assert.InDelta(t, 3629*0.25/1000, in.Profiles.Demand[0], tol)
	assert.Len(t, in.ZeroTariffSteps, 8)
	assert.Len(t, in.Params.FeedInTariff, 96)
	assert.Equal(t, cfg.Horizon.Start, in.Timestamps[0])

	var peak float64
	for _, v := range in.Profiles.PVYield {
		peak = max(peak, v)
	}
	assert.Greater(t, peak, 0.1)
	assert.Equal(t, 0.0, in.Profiles.PVYield[0])
}

func TestLoadInputCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yields.csv")
	body := "timestamp,wind,pv\n" +
		"2024-03-01 00:00:00,0.1,0\n" +
		"2024-03-01 00:15:00,0.2,0\n" +
		"2024-03-01 00:30:00,0.3,0\n" +
		"2024-03-01 00:45:00,0.4,0\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg := config.Default()
	cfg.Horizon.Days = 1.0 / 24
	cfg.Input.Path = path

	in, err := LoadInput(&cfg)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, in.Profiles.WindYield)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 15, 0, 0, time.UTC), in.Timestamps[1])
	// no capacity columns: reference installations noted
	assert.NotEmpty(t, in.Diagnostics)
	// 459 zero-tariff hours cover the whole hour
	assert.Len(t, in.ZeroTariffSteps, 4)

	cfg.Input.Path = filepath.Join(t.TempDir(), "missing.csv")
	_, err = LoadInput(&cfg)
	assert.True(t, model.IsKind(err, model.KindInput))

	_, err = LoadInput(nil)
	assert.Error(t, err)
}

func TestEngineRunFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Horizon.Days = 1.0 / 24
	cfg.Input.Source = config.SourceSynthetic
	cfg.Grid.ZeroTariffHours = 0

	in, err := LoadInput(&cfg)
	require.NoError(t, err)
	e := New(&solver.Simplex{Logger: zerolog.Nop()}, cfg.AnalysisOptions(), zerolog.Nop())
	out, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	require.True(t, out.Optimal())
	// midnight in January: no sun, and a constant wind plant costs more than the grid
	// over a single hour, so demand is met from the grid.
	assert.InDelta(t, 4*169.9*3629*0.25/1000, out.Report.Costs.GridCost, 1e-3)
}

func TestNewInputInline(t *testing.T) {
	cfg := config.Default()
	cfg.Horizon.Days = 1.0 / 24
	cfg.Grid.ZeroTariffHours = 0.5
	cfg.Grid.TariffPolicy = "lowest_demand"

	prof := model.Profiles{
		Demand:    []float64{4, 1, 3, 2},
		PVYield:   []float64{0, -0.5, 0.2, 0},
		WindYield: []float64{0.1, 0.1, 0.1, 0.1},
	}
	in, err := NewInput(&cfg, prof)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0.2, 0}, in.Profiles.PVYield)
	assert.Equal(t, -0.5, prof.PVYield[1], "caller's slice is not modified")
	require.Len(t, in.Diagnostics, 1)
	assert.Equal(t, []int{1, 3}, in.ZeroTariffSteps)
	assert.Equal(t, []float64{50, 0, 50, 0}, in.Params.FeedInTariff)

	// demand defaults to the configured constant load
	in, err = NewInput(&cfg, model.Profiles{PVYield: prof.PVYield, WindYield: prof.WindYield})
	require.NoError(t, err)
	assert.InDelta(t, 3629*0.25/1000, in.Profiles.Demand[3], tol)

	_, err = NewInput(&cfg, model.Profiles{PVYield: []float64{1}, WindYield: prof.WindYield})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindInput))

	in, err = NewInput(&cfg, model.Profiles{PVYield: []float64{0, math.NaN(), 0, 0}, WindYield: prof.WindYield})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindInput))
	assert.Nil(t, in)
}
