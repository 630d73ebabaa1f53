package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"energy-sizing/internal/profiles"
)

// Overrides is a sparse set of study assumptions. Nil fields keep the base value,
// so zero is a valid override (e.g. a zero discount rate or disabling storage).
// Scenario presets on disk and API requests both use this shape.
type Overrides struct {
	Name        string `yaml:"name" json:"name,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`

	StepHours  *float64 `yaml:"step_hours" json:"step_hours,omitempty"`
	Days       *float64 `yaml:"days" json:"days,omitempty"`
	KWhPerHour *float64 `yaml:"demand_kwh_per_hour" json:"demand_kwh_per_hour,omitempty"`

	PVCapexPerMW          *float64 `yaml:"pv_capex_per_mw" json:"pv_capex_per_mw,omitempty"`
	PVOpexPerMWYear       *float64 `yaml:"pv_opex_per_mw_year" json:"pv_opex_per_mw_year,omitempty"`
	WindCapexPerMW        *float64 `yaml:"wind_capex_per_mw" json:"wind_capex_per_mw,omitempty"`
	WindOpexPerMWYear     *float64 `yaml:"wind_opex_per_mw_year" json:"wind_opex_per_mw_year,omitempty"`
	BatteryCapexPerMW     *float64 `yaml:"battery_capex_per_mw" json:"battery_capex_per_mw,omitempty"`
	BatteryOpexPerMWhYear *float64 `yaml:"battery_opex_per_mwh_year" json:"battery_opex_per_mwh_year,omitempty"`

	DiscountRate         *float64 `yaml:"discount_rate" json:"discount_rate,omitempty"`
	LifetimePVWindYears  *int     `yaml:"lifetime_pv_wind_years" json:"lifetime_pv_wind_years,omitempty"`
	LifetimeBatteryYears *int     `yaml:"lifetime_battery_years" json:"lifetime_battery_years,omitempty"`

	RoundTripEfficiency *float64 `yaml:"round_trip_efficiency" json:"round_trip_efficiency,omitempty"`
	MinSOCFraction      *float64 `yaml:"min_soc_fraction" json:"min_soc_fraction,omitempty"`

	GridPurchasePrice *float64               `yaml:"grid_purchase_price" json:"grid_purchase_price,omitempty"`
	FeedInTariff      *float64               `yaml:"feed_in_tariff" json:"feed_in_tariff,omitempty"`
	ZeroTariffHours   *float64               `yaml:"zero_tariff_hours" json:"zero_tariff_hours,omitempty"`
	TariffSeed        *int64                 `yaml:"tariff_seed" json:"tariff_seed,omitempty"`
	TariffPolicy      *profiles.TariffPolicy `yaml:"tariff_policy" json:"tariff_policy,omitempty"`

	Limits LimitsConfig `yaml:"limits" json:"limits"`
}

// ApplyTo overlays every set field onto c.
func (o Overrides) ApplyTo(c *Config) {
	set(&c.Horizon.StepHours, o.StepHours)
	set(&c.Horizon.Days, o.Days)
	set(&c.Demand.KWhPerHour, o.KWhPerHour)

	set(&c.Costs.PV.CapexPerMW, o.PVCapexPerMW)
	set(&c.Costs.PV.OpexPerMWYear, o.PVOpexPerMWYear)
	set(&c.Costs.Wind.CapexPerMW, o.WindCapexPerMW)
	set(&c.Costs.Wind.OpexPerMWYear, o.WindOpexPerMWYear)
	set(&c.Costs.BatteryCapexPerMW, o.BatteryCapexPerMW)
	set(&c.Costs.BatteryOpexPerMWhYear, o.BatteryOpexPerMWhYear)

	set(&c.Finance.DiscountRate, o.DiscountRate)
	set(&c.Finance.LifetimePVWindYears, o.LifetimePVWindYears)
	set(&c.Finance.LifetimeBatteryYears, o.LifetimeBatteryYears)

	set(&c.Battery.RoundTripEfficiency, o.RoundTripEfficiency)
	set(&c.Battery.MinSOCFraction, o.MinSOCFraction)

	set(&c.Grid.PurchasePrice, o.GridPurchasePrice)
	set(&c.Grid.FeedInTariff, o.FeedInTariff)
	set(&c.Grid.ZeroTariffHours, o.ZeroTariffHours)
	set(&c.Grid.TariffSeed, o.TariffSeed)
	set(&c.Grid.TariffPolicy, o.TariffPolicy)

	c.Limits = MergeLimits(c.Limits, o.Limits)
}

// Apply returns a copy of base with o overlaid.
func Apply(base Config, o Overrides) Config {
	o.ApplyTo(&base)
	return base
}

// MergeLimits overlays the limits set in override onto base.
func MergeLimits(base, override LimitsConfig) LimitsConfig {
	out := base
	if override.PVMW != nil {
		out.PVMW = override.PVMW
	}
	if override.WindMW != nil {
		out.WindMW = override.WindMW
	}
	if override.BatteryMWh != nil {
		out.BatteryMWh = override.BatteryMWh
	}
	if override.BatteryMW != nil {
		out.BatteryMW = override.BatteryMW
	}
	return out
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// LoadScenario reads a preset file.
func LoadScenario(path string) (Overrides, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, err
	}
	var o Overrides
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return Overrides{}, err
	}
	if o.Name == "" {
		o.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return o, nil
}

// ScenarioInfo describes one preset found on disk.
type ScenarioInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	File        string    `json:"file"`
	Overrides   Overrides `json:"overrides"`
}

// ListScenarios loads every *.yaml preset in dir, skipping files that fail to parse.
// The returned error lists nothing but a missing or unreadable directory.
func ListScenarios(dir string) ([]ScenarioInfo, []error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	var out []ScenarioInfo
	var skipped []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		o, err := LoadScenario(path)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		out = append(out, ScenarioInfo{
			ID:          strings.TrimSuffix(entry.Name(), ".yaml"),
			Name:        o.Name,
			Description: o.Description,
			File:        path,
			Overrides:   o,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, skipped, nil
}
