package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"energy-sizing/internal/analysis"
	"energy-sizing/internal/model"
	"energy-sizing/internal/profiles"
	"energy-sizing/internal/solver"
)

// Config is the on-disk configuration shape (YAML). Every leaf can be overridden
// from the environment; `sizing-cli env` lists the variables.
type Config struct {
	// Optional: load a scenario preset (examples/scenarios/*.yaml) and overlay it.
	// Fields set in this file win over the preset.
	ScenarioFile string `yaml:"scenario_file" json:"scenario_file,omitempty" env:"SIZING_SCENARIO_FILE" env-description:"scenario preset to overlay"`

	Horizon  HorizonConfig  `yaml:"horizon" json:"horizon" env-prefix:"SIZING_HORIZON_"`
	Demand   DemandConfig   `yaml:"demand" json:"demand" env-prefix:"SIZING_DEMAND_"`
	Costs    CostsConfig    `yaml:"costs" json:"costs" env-prefix:"SIZING_COSTS_"`
	Finance  FinanceConfig  `yaml:"finance" json:"finance" env-prefix:"SIZING_FINANCE_"`
	Battery  BatteryConfig  `yaml:"battery" json:"battery" env-prefix:"SIZING_BATTERY_"`
	Grid     GridConfig     `yaml:"grid" json:"grid" env-prefix:"SIZING_GRID_"`
	Limits   LimitsConfig   `yaml:"limits" json:"limits"`
	Input    InputConfig    `yaml:"input" json:"input" env-prefix:"SIZING_INPUT_"`
	Solver   SolverConfig   `yaml:"solver" json:"solver" env-prefix:"SIZING_SOLVER_"`
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis" env-prefix:"SIZING_ANALYSIS_"`
	Store    StoreConfig    `yaml:"store" json:"-" env-prefix:"SIZING_STORE_"`
	Log      LogConfig      `yaml:"log" json:"-" env-prefix:"SIZING_LOG_"`
	Server   ServerConfig   `yaml:"server" json:"-" env-prefix:"SIZING_SERVER_"`
}

type HorizonConfig struct {
	StepHours float64 `yaml:"step_hours" json:"step_hours" env:"STEP_HOURS" env-description:"interval length in hours"`
	Days      float64 `yaml:"days" json:"days" env:"DAYS" env-description:"length of the simulated period in days"`
	// Start anchors timestamps in exports and the synthetic PV profile.
	Start time.Time `yaml:"start" json:"start" env:"START" env-layout:"2006-01-02T15:04:05Z07:00" env-description:"start of the period (RFC3339)"`
}

type DemandConfig struct {
	KWhPerHour float64 `yaml:"kwh_per_hour" json:"kwh_per_hour" env:"KWH_PER_HOUR" env-description:"constant load in kWh per hour"`
}

type TechnologyCosts struct {
	CapexPerMW    float64 `yaml:"capex_per_mw" json:"capex_per_mw" env:"CAPEX_PER_MW"`
	OpexPerMWYear float64 `yaml:"opex_per_mw_year" json:"opex_per_mw_year" env:"OPEX_PER_MW_YEAR"`
}

type CostsConfig struct {
	PV                    TechnologyCosts `yaml:"pv" json:"pv" env-prefix:"PV_"`
	Wind                  TechnologyCosts `yaml:"wind" json:"wind" env-prefix:"WIND_"`
	BatteryCapexPerMW     float64         `yaml:"battery_capex_per_mw" json:"battery_capex_per_mw" env:"BATTERY_CAPEX_PER_MW" env-description:"battery CAPEX per MW of power"`
	BatteryOpexPerMWhYear float64         `yaml:"battery_opex_per_mwh_year" json:"battery_opex_per_mwh_year" env:"BATTERY_OPEX_PER_MWH_YEAR" env-description:"battery OPEX per MWh of energy per year"`
}

type FinanceConfig struct {
	DiscountRate         float64 `yaml:"discount_rate" json:"discount_rate" env:"DISCOUNT_RATE" env-description:"discount rate per year"`
	LifetimePVWindYears  int     `yaml:"lifetime_pv_wind_years" json:"lifetime_pv_wind_years" env:"LIFETIME_PV_WIND_YEARS"`
	LifetimeBatteryYears int     `yaml:"lifetime_battery_years" json:"lifetime_battery_years" env:"LIFETIME_BATTERY_YEARS"`
}

type BatteryConfig struct {
	RoundTripEfficiency float64 `yaml:"round_trip_efficiency" json:"round_trip_efficiency" env:"ROUND_TRIP_EFFICIENCY"`
	MinSOCFraction      float64 `yaml:"min_soc_fraction" json:"min_soc_fraction" env:"MIN_SOC_FRACTION"`
}

type GridConfig struct {
	PurchasePrice   float64               `yaml:"purchase_price" json:"purchase_price" env:"PURCHASE_PRICE" env-description:"grid purchase price per MWh"`
	FeedInTariff    float64               `yaml:"feed_in_tariff" json:"feed_in_tariff" env:"FEED_IN_TARIFF" env-description:"feed-in tariff per MWh"`
	ZeroTariffHours float64               `yaml:"zero_tariff_hours" json:"zero_tariff_hours" env:"ZERO_TARIFF_HOURS" env-description:"hours per period without feed-in payment"`
	TariffSeed      int64                 `yaml:"tariff_seed" json:"tariff_seed" env:"TARIFF_SEED"`
	TariffPolicy    profiles.TariffPolicy `yaml:"tariff_policy" json:"tariff_policy" env:"TARIFF_POLICY" env-description:"random or lowest_demand"`
}

// LimitsConfig optionally caps capacities; a missing value leaves a capacity free.
type LimitsConfig struct {
	PVMW       *float64 `yaml:"pv_mw" json:"pv_mw,omitempty"`
	WindMW     *float64 `yaml:"wind_mw" json:"wind_mw,omitempty"`
	BatteryMWh *float64 `yaml:"battery_mwh" json:"battery_mwh,omitempty"`
	BatteryMW  *float64 `yaml:"battery_mw" json:"battery_mw,omitempty"`
}

const (
	SourceCSV       = "csv"
	SourceSynthetic = "synthetic"
)

type InputConfig struct {
	Source string `yaml:"source" json:"source" env:"SOURCE" env-description:"csv or synthetic"`
	Path   string `yaml:"path" json:"path,omitempty" env:"PATH" env-description:"yield CSV path"`
	// Synthetic profile settings.
	Latitude           float64 `yaml:"latitude" json:"latitude" env:"LATITUDE"`
	Longitude          float64 `yaml:"longitude" json:"longitude" env:"LONGITUDE"`
	PerformanceRatio   float64 `yaml:"performance_ratio" json:"performance_ratio" env:"PERFORMANCE_RATIO"`
	WindCapacityFactor float64 `yaml:"wind_capacity_factor" json:"wind_capacity_factor" env:"WIND_CAPACITY_FACTOR"`
}

type SolverConfig struct {
	Backend   string        `yaml:"backend" json:"backend" env:"BACKEND" env-description:"simplex, cbc or auto"`
	Binary    string        `yaml:"binary" json:"binary,omitempty" env:"BINARY" env-description:"path to the cbc executable"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
	Verbose   bool          `yaml:"verbose" json:"verbose" env:"VERBOSE"`
	Tolerance float64       `yaml:"tolerance" json:"tolerance" env:"TOLERANCE"`
	MaxRows   int           `yaml:"max_rows" json:"max_rows" env:"MAX_ROWS" env-description:"largest problem the in-process simplex accepts (at most 200 rows)"`
	WorkDir   string        `yaml:"work_dir" json:"work_dir,omitempty" env:"WORK_DIR"`
}

type AnalysisConfig struct {
	ObjectiveTolerance float64 `yaml:"objective_tolerance" json:"objective_tolerance" env:"OBJECTIVE_TOLERANCE"`
	BalanceTolerance   float64 `yaml:"balance_tolerance" json:"balance_tolerance" env:"BALANCE_TOLERANCE"`
	TurbineMW          float64 `yaml:"turbine_mw" json:"turbine_mw" env:"TURBINE_MW"`
}

type StoreConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	DSN     string `yaml:"dsn" env:"DSN" env-description:"PostgreSQL connection string"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT" env-description:"json or console"`
}

type ServerConfig struct {
	Port        string        `yaml:"port" env:"PORT"`
	Env         string        `yaml:"env" env:"ENV" env-description:"production enables gin release mode"`
	CORSOrigins []string      `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:","`
	CacheTTL    time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// Default reproduces the reference study: one leap year at 15-minute resolution.
func Default() Config {
	return Config{
		Horizon: HorizonConfig{
			StepHours: 0.25,
			Days:      366,
			Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Demand: DemandConfig{KWhPerHour: 3629},
		Costs: CostsConfig{
			PV:                    TechnologyCosts{CapexPerMW: 800_000, OpexPerMWYear: 13_300},
			Wind:                  TechnologyCosts{CapexPerMW: 1_600_000, OpexPerMWYear: 32_000},
			BatteryCapexPerMW:     600_000,
			BatteryOpexPerMWhYear: 6_650,
		},
		Finance: FinanceConfig{DiscountRate: 0.06, LifetimePVWindYears: 20, LifetimeBatteryYears: 15},
		Battery: BatteryConfig{RoundTripEfficiency: 0.88, MinSOCFraction: 0.1},
		Grid: GridConfig{
			PurchasePrice:   169.9,
			FeedInTariff:    50,
			ZeroTariffHours: 459,
			TariffSeed:      profiles.DefaultTariffSeed,
			TariffPolicy:    profiles.PolicyRandom,
		},
		Input: InputConfig{
			Source:             SourceCSV,
			Path:               "data/yields.csv",
			Latitude:           52.52,
			Longitude:          13.40,
			PerformanceRatio:   0.75,
			WindCapacityFactor: 0.3,
		},
		Solver: SolverConfig{
			Backend:   solver.BackendAuto,
			Binary:    "cbc",
			Timeout:   30 * time.Minute,
			Tolerance: 1e-9,
			MaxRows:   solver.DefaultMaxRows,
		},
		Analysis: AnalysisConfig{
			ObjectiveTolerance: 1,
			BalanceTolerance:   1,
			TurbineMW:          analysis.DefaultTurbineMW,
		},
		Log:    LogConfig{Level: "info", Format: "console"},
		Server: ServerConfig{Port: "8080", CacheTTL: time.Hour},
	}
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked layers defaults, the YAML file (if path is non-empty), its scenario
// preset and environment overrides, but does not validate the result.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if c.ScenarioFile != "" {
			if err := c.applyScenarioFile(path, raw); err != nil {
				return nil, err
			}
		}
	}
	if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &c, nil
}

// applyScenarioFile re-layers defaults, preset and file so that the file wins.
func (c *Config) applyScenarioFile(path string, raw []byte) error {
	scenarioPath := c.ScenarioFile
	if !filepath.IsAbs(scenarioPath) {
		// Prefer interpreting relative paths as relative to the config file directory,
		// but fall back to the provided path (relative to cwd) if that doesn't exist.
		cand := filepath.Join(filepath.Dir(path), scenarioPath)
		if _, err := os.Stat(cand); err == nil {
			scenarioPath = cand
		}
	}
	sc, err := LoadScenario(scenarioPath)
	if err != nil {
		return err
	}
	out := Default()
	sc.ApplyTo(&out)
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return err
	}
	*c = out
	return nil
}

// Validate rejects configurations that cannot produce a study.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if _, err := c.HorizonModel(); err != nil {
		return err
	}
	if c.Demand.KWhPerHour < 0 {
		return model.InputError("config", "demand.kwh_per_hour must be >= 0")
	}
	for name, v := range map[string]float64{
		"costs.pv.capex_per_mw":           c.Costs.PV.CapexPerMW,
		"costs.pv.opex_per_mw_year":       c.Costs.PV.OpexPerMWYear,
		"costs.wind.capex_per_mw":         c.Costs.Wind.CapexPerMW,
		"costs.wind.opex_per_mw_year":     c.Costs.Wind.OpexPerMWYear,
		"costs.battery_capex_per_mw":      c.Costs.BatteryCapexPerMW,
		"costs.battery_opex_per_mwh_year": c.Costs.BatteryOpexPerMWhYear,
		"grid.purchase_price":             c.Grid.PurchasePrice,
		"grid.feed_in_tariff":             c.Grid.FeedInTariff,
		"grid.zero_tariff_hours":          c.Grid.ZeroTariffHours,
		"finance.discount_rate":           c.Finance.DiscountRate,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return model.InputError("config", "%s must be a finite value >= 0, got %v", name, v)
		}
	}
	if c.Finance.LifetimePVWindYears <= 0 || c.Finance.LifetimeBatteryYears <= 0 {
		return model.InputError("config", "lifetimes must be > 0 years")
	}
	if e := c.Battery.RoundTripEfficiency; e < 0 || e > 1 || math.IsNaN(e) {
		return model.InputError("config", "battery.round_trip_efficiency must be in [0, 1], got %v", e)
	}
	if f := c.Battery.MinSOCFraction; f < 0 || f > 1 || math.IsNaN(f) {
		return model.InputError("config", "battery.min_soc_fraction must be in [0, 1], got %v", f)
	}
	switch c.Grid.TariffPolicy {
	case profiles.PolicyRandom, profiles.PolicyLowestDemand:
	default:
		return model.InputError("config", "grid.tariff_policy must be %q or %q, got %q", profiles.PolicyRandom, profiles.PolicyLowestDemand, c.Grid.TariffPolicy)
	}
	for name, v := range map[string]*float64{
		"limits.pv_mw":       c.Limits.PVMW,
		"limits.wind_mw":     c.Limits.WindMW,
		"limits.battery_mwh": c.Limits.BatteryMWh,
		"limits.battery_mw":  c.Limits.BatteryMW,
	} {
		if v != nil && *v < 0 {
			return model.InputError("config", "%s must be >= 0, got %v", name, *v)
		}
	}
	switch c.Input.Source {
	case SourceCSV:
		if c.Input.Path == "" {
			return model.InputError("config", "input.path is required for the csv source")
		}
	case SourceSynthetic:
		if c.Input.WindCapacityFactor < 0 || c.Input.WindCapacityFactor > 1 {
			return model.InputError("config", "input.wind_capacity_factor must be in [0, 1]")
		}
	default:
		return model.InputError("config", "input.source must be %q or %q, got %q", SourceCSV, SourceSynthetic, c.Input.Source)
	}
	if c.Solver.MaxRows < 0 || c.Solver.MaxRows > solver.DefaultMaxRows {
		return model.InputError("config", "solver.max_rows must be in [0, %d], got %d", solver.DefaultMaxRows, c.Solver.MaxRows)
	}
	if _, err := solver.New(c.SolverOptions(), zerolog.Nop()); err != nil {
		return model.InputError("config", "%v", err)
	}
	if c.Store.Enabled && c.Store.DSN == "" {
		return model.InputError("config", "store.dsn is required when the store is enabled")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return model.InputError("config", "log.level: %v", err)
	}
	return nil
}

// HorizonModel derives the study horizon.
func (c *Config) HorizonModel() (model.Horizon, error) {
	return model.NewHorizon(c.Horizon.StepHours, c.Horizon.Days)
}

// ToParams assembles model parameters around an already synthesised tariff.
func (c *Config) ToParams(tariff []float64) model.Params {
	return model.Params{
		PV:                    model.Technology{CapexPerMW: c.Costs.PV.CapexPerMW, OpexPerMWYear: c.Costs.PV.OpexPerMWYear},
		Wind:                  model.Technology{CapexPerMW: c.Costs.Wind.CapexPerMW, OpexPerMWYear: c.Costs.Wind.OpexPerMWYear},
		BatteryCapexPerMW:     c.Costs.BatteryCapexPerMW,
		BatteryOpexPerMWhYear: c.Costs.BatteryOpexPerMWhYear,
		DiscountRate:          c.Finance.DiscountRate,
		LifetimePVWindYears:   c.Finance.LifetimePVWindYears,
		LifetimeBatteryYears:  c.Finance.LifetimeBatteryYears,
		RoundTripEfficiency:   c.Battery.RoundTripEfficiency,
		MinSOCFraction:        c.Battery.MinSOCFraction,
		GridPurchasePrice:     c.Grid.PurchasePrice,
		FeedInTariff:          tariff,
		Limits: model.CapacityLimits{
			PVMW:       c.Limits.PVMW,
			WindMW:     c.Limits.WindMW,
			BatteryMWh: c.Limits.BatteryMWh,
			BatteryMW:  c.Limits.BatteryMW,
		},
	}
}

func (c *Config) TariffSpec() profiles.TariffSpec {
	return profiles.TariffSpec{
		Value:     c.Grid.FeedInTariff,
		ZeroHours: c.Grid.ZeroTariffHours,
		Policy:    c.Grid.TariffPolicy,
		Seed:      c.Grid.TariffSeed,
	}
}

func (c *Config) SolarSite() profiles.SolarSite {
	return profiles.SolarSite{
		Latitude:         c.Input.Latitude,
		Longitude:        c.Input.Longitude,
		Start:            c.Horizon.Start,
		PerformanceRatio: c.Input.PerformanceRatio,
	}
}

func (c *Config) SolverOptions() solver.Options {
	return solver.Options{
		Backend:   c.Solver.Backend,
		Binary:    c.Solver.Binary,
		TimeLimit: c.Solver.Timeout,
		Verbose:   c.Solver.Verbose,
		Tolerance: c.Solver.Tolerance,
		MaxRows:   c.Solver.MaxRows,
		WorkDir:   c.Solver.WorkDir,
	}
}

func (c *Config) AnalysisOptions() analysis.Options {
	return analysis.Options{
		ObjectiveTolerance: c.Analysis.ObjectiveTolerance,
		BalanceTolerance:   c.Analysis.BalanceTolerance,
		TurbineMW:          c.Analysis.TurbineMW,
	}
}

// EnvUsage describes every environment override.
func EnvUsage() (string, error) {
	c := Default()
	header := "Environment overrides:"
	return cleanenv.GetDescription(&c, &header)
}
