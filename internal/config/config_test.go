package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-sizing/internal/model"
	"energy-sizing/internal/profiles"
	"energy-sizing/internal/solver"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	h, err := c.HorizonModel()
	require.NoError(t, err)
	assert.Equal(t, 35136, h.Steps)
	assert.Equal(t, solver.BackendAuto, c.Solver.Backend)
	assert.Equal(t, profiles.PolicyRandom, c.Grid.TariffPolicy)
	assert.Equal(t, int64(42), c.Grid.TariffSeed)
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "study.yaml", `
horizon:
  step_hours: 1
  days: 2
grid:
  purchase_price: 200
solver:
  timeout: 5m
limits:
  battery_mw: 3
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.Horizon.StepHours)
	assert.Equal(t, 2.0, c.Horizon.Days)
	assert.Equal(t, 200.0, c.Grid.PurchasePrice)
	assert.Equal(t, 5*time.Minute, c.Solver.Timeout)
	require.NotNil(t, c.Limits.BatteryMW)
	assert.Equal(t, 3.0, *c.Limits.BatteryMW)
	assert.Nil(t, c.Limits.PVMW)
	// untouched sections keep their defaults
	assert.Equal(t, 0.88, c.Battery.RoundTripEfficiency)
}

func TestLoadEnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "study.yaml", "grid:\n  purchase_price: 200\n")
	t.Setenv("SIZING_GRID_PURCHASE_PRICE", "250.5")
	t.Setenv("SIZING_COSTS_PV_CAPEX_PER_MW", "700000")
	t.Setenv("SIZING_SOLVER_BACKEND", "simplex")
	t.Setenv("SIZING_SERVER_CORS_ORIGINS", "http://a.test,http://b.test")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250.5, c.Grid.PurchasePrice)
	assert.Equal(t, 700000.0, c.Costs.PV.CapexPerMW)
	assert.Equal(t, solver.BackendSimplex, c.Solver.Backend)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.Server.CORSOrigins)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("SIZING_HORIZON_DAYS", "7")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7.0, c.Horizon.Days)
}

func TestLoadScenarioPreset(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scenarios/cheap.yaml", `
name: Cheap storage
battery_capex_per_mw: 100000
discount_rate: 0
grid_purchase_price: 300
limits:
  wind_mw: 0
`)
	path := writeFile(t, dir, "study.yaml", `
scenario_file: scenarios/cheap.yaml
grid:
  purchase_price: 180
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, c.Costs.BatteryCapexPerMW)
	assert.Equal(t, 0.0, c.Finance.DiscountRate)
	require.NotNil(t, c.Limits.WindMW)
	assert.Equal(t, 0.0, *c.Limits.WindMW)
	// the config file itself wins over the preset
	assert.Equal(t, 180.0, c.Grid.PurchasePrice)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "horizon: [1, 2\n")
	_, err = Load(bad)
	require.Error(t, err)

	missingPreset := writeFile(t, dir, "preset.yaml", "scenario_file: nope.yaml\n")
	_, err = Load(missingPreset)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	neg := -1.0
	tests := []struct {
		name   string
		mutate func(c *Config)
		msg    string
	}{
		{"step", func(c *Config) { c.Horizon.StepHours = 0 }, "time resolution"},
		{"demand", func(c *Config) { c.Demand.KWhPerHour = -1 }, "demand.kwh_per_hour"},
		{"capex", func(c *Config) { c.Costs.Wind.CapexPerMW = -5 }, "costs.wind.capex_per_mw"},
		{"lifetime", func(c *Config) { c.Finance.LifetimeBatteryYears = 0 }, "lifetimes"},
		{"efficiency", func(c *Config) { c.Battery.RoundTripEfficiency = 1.2 }, "round_trip_efficiency"},
		{"min soc", func(c *Config) { c.Battery.MinSOCFraction = 2 }, "min_soc_fraction"},
		{"policy", func(c *Config) { c.Grid.TariffPolicy = "cheapest" }, "tariff_policy"},
		{"limit", func(c *Config) { c.Limits.PVMW = &neg }, "limits.pv_mw"},
		{"source", func(c *Config) { c.Input.Source = "ftp" }, "input.source"},
		{"csv path", func(c *Config) { c.Input.Path = "" }, "input.path"},
		{"wind cf", func(c *Config) {
			c.Input.Source = SourceSynthetic
			c.Input.WindCapacityFactor = 1.5
		}, "wind_capacity_factor"},
		{"backend", func(c *Config) { c.Solver.Backend = "glpk" }, "unknown solver backend"},
		{"simplex rows", func(c *Config) { c.Solver.MaxRows = 4000 }, "solver.max_rows"},
		{"store", func(c *Config) { c.Store.Enabled = true }, "store.dsn"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
			assert.True(t, model.IsKind(err, model.KindInput))
		})
	}

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}

func TestConversions(t *testing.T) {
	c := Default()
	pv := 10.0
	c.Limits.PVMW = &pv

	tariff := []float64{50, 0}
	p := c.ToParams(tariff)
	assert.Equal(t, 800000.0, p.PV.CapexPerMW)
	assert.Equal(t, 32000.0, p.Wind.OpexPerMWYear)
	assert.Equal(t, 169.9, p.GridPurchasePrice)
	assert.Equal(t, tariff, p.FeedInTariff)
	assert.Same(t, &pv, p.Limits.PVMW)

	spec := c.TariffSpec()
	assert.Equal(t, 459.0, spec.ZeroHours)
	assert.Equal(t, profiles.PolicyRandom, spec.Policy)

	site := c.SolarSite()
	assert.Equal(t, c.Horizon.Start, site.Start)

	opts := c.SolverOptions()
	assert.Equal(t, 30*time.Minute, opts.TimeLimit)
	assert.Equal(t, solver.DefaultMaxRows, opts.MaxRows)

	a := c.AnalysisOptions()
	assert.Equal(t, 6.8, a.TurbineMW)
}

func TestEnvUsage(t *testing.T) {
	usage, err := EnvUsage()
	require.NoError(t, err)
	assert.Contains(t, usage, "SIZING_GRID_PURCHASE_PRICE")
	assert.Contains(t, usage, "SIZING_COSTS_PV_CAPEX_PER_MW")
	assert.Contains(t, usage, "SIZING_SOLVER_BACKEND")
}

func TestOverridesApply(t *testing.T) {
	zero := 0.0
	rate := 0.0
	policy := profiles.PolicyLowestDemand
	years := 25
	mw := 5.0
	o := Overrides{
		FeedInTariff:        &zero,
		DiscountRate:        &rate,
		TariffPolicy:        &policy,
		LifetimePVWindYears: &years,
		Limits:              LimitsConfig{BatteryMW: &mw},
	}
	base := Default()
	out := Apply(base, o)

	assert.Equal(t, 0.0, out.Grid.FeedInTariff)
	assert.Equal(t, 0.0, out.Finance.DiscountRate)
	assert.Equal(t, profiles.PolicyLowestDemand, out.Grid.TariffPolicy)
	assert.Equal(t, 25, out.Finance.LifetimePVWindYears)
	require.NotNil(t, out.Limits.BatteryMW)
	assert.Equal(t, 5.0, *out.Limits.BatteryMW)
	// unset fields are untouched, and base is not modified
	assert.Equal(t, 169.9, out.Grid.PurchasePrice)
	assert.Equal(t, 50.0, base.Grid.FeedInTariff)
	assert.Nil(t, base.Limits.BatteryMW)
}

func TestMergeLimits(t *testing.T) {
	a, b := 1.0, 2.0
	out := MergeLimits(LimitsConfig{PVMW: &a, WindMW: &a}, LimitsConfig{WindMW: &b})
	assert.Equal(t, 1.0, *out.PVMW)
	assert.Equal(t, 2.0, *out.WindMW)
	assert.Nil(t, out.BatteryMW)
}

func TestListScenarios(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "name: Bee\nfeed_in_tariff: 0\n")
	writeFile(t, dir, "a.yaml", "description: unnamed\n")
	writeFile(t, dir, "broken.yaml", "name: [\n")
	writeFile(t, dir, "notes.txt", "ignored")

	list, skipped, err := ListScenarios(dir)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "Bee", list[1].Name)
	require.NotNil(t, list[1].Overrides.FeedInTariff)
	assert.Len(t, skipped, 1)

	_, _, err = ListScenarios(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestShippedScenariosParse(t *testing.T) {
	list, skipped, err := ListScenarios(filepath.Join("..", "..", "examples", "scenarios"))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
		c := Apply(Default(), s.Overrides)
		assert.NoError(t, c.Validate(), s.ID)
	}
	assert.Contains(t, ids, "baseline")
	assert.Contains(t, ids, "no_battery")
}
