package study

import (
	"fmt"
	"time"

	"energy-sizing/internal/config"
	"energy-sizing/internal/model"
	"energy-sizing/internal/profiles"
)

// Input is everything a study needs before the model is built.
type Input struct {
	Name     string
	Horizon  model.Horizon
	Start    time.Time
	Profiles model.Profiles
	Params   model.Params

	// Timestamps come from the yield file when it has them, otherwise from Start.
	Timestamps []time.Time
	// ZeroTariffSteps are the interval indices without feed-in payment.
	ZeroTariffSteps []int
	Diagnostics     []model.Diagnostic
}

// LoadInput assembles profiles, tariff and parameters from a validated config.
func LoadInput(cfg *config.Config) (*Input, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	h, err := cfg.HorizonModel()
	if err != nil {
		return nil, err
	}
	in := &Input{Horizon: h, Start: cfg.Horizon.Start}

	switch cfg.Input.Source {
	case config.SourceSynthetic:
		pv, err := profiles.SyntheticPV(h, cfg.SolarSite())
		if err != nil {
			return nil, err
		}
		in.Profiles.PVYield = pv
		in.Profiles.WindYield = profiles.ConstantYield(h, cfg.Input.WindCapacityFactor*h.StepHours)
	default:
		yd, err := profiles.LoadYieldCSV(cfg.Input.Path, h)
		if err != nil {
			return nil, err
		}
		in.Profiles.PVYield = yd.PVYield
		in.Profiles.WindYield = yd.WindYield
		in.Diagnostics = append(in.Diagnostics, yd.Diagnostics...)
		if len(yd.Timestamps) > 0 && !yd.Timestamps[0].IsZero() {
			in.Timestamps = yd.Timestamps
		}
	}
	if err := in.complete(cfg); err != nil {
		return nil, err
	}
	return in, nil
}

// NewInput builds an Input around caller-supplied series. A nil demand falls back
// to the configured constant load. Negative yields are clamped with a diagnostic.
func NewInput(cfg *config.Config, prof model.Profiles) (*Input, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	h, err := cfg.HorizonModel()
	if err != nil {
		return nil, err
	}
	in := &Input{Horizon: h, Start: cfg.Horizon.Start}
	in.Profiles.PVYield = append([]float64(nil), prof.PVYield...)
	in.Profiles.WindYield = append([]float64(nil), prof.WindYield...)
	if n := model.ClampNonNegative(in.Profiles.PVYield) + model.ClampNonNegative(in.Profiles.WindYield); n > 0 {
		in.Diagnostics = append(in.Diagnostics, model.Diagnostic{
			Kind:    model.KindNumeric,
			Source:  "profiles",
			Message: fmt.Sprintf("clamped %d negative yield values to zero", n),
		})
	}
	if prof.Demand != nil {
		in.Profiles.Demand = append([]float64(nil), prof.Demand...)
	}
	if err := in.complete(cfg); err != nil {
		return nil, err
	}
	return in, nil
}

// complete adds demand (unless set), the feed-in tariff and the parameters.
func (in *Input) complete(cfg *config.Config) error {
	h := in.Horizon
	if in.Profiles.Demand == nil {
		demand, err := profiles.ConstantDemand(h, cfg.Demand.KWhPerHour)
		if err != nil {
			return err
		}
		in.Profiles.Demand = demand
	}
	if err := in.Profiles.Validate(h); err != nil {
		return err
	}

	tariff, zeroed, err := profiles.FeedInTariff(h, cfg.TariffSpec(), in.Profiles.Demand)
	if err != nil {
		return err
	}
	in.ZeroTariffSteps = zeroed
	in.Params = cfg.ToParams(tariff)
	if in.Timestamps == nil {
		in.Timestamps = h.Timestamps(in.Start)
	}
	return nil
}
