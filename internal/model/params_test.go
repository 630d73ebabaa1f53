package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams(h Horizon) Params {
	return Params{
		PV:                    Technology{CapexPerMW: 800_000, OpexPerMWYear: 13_300},
		Wind:                  Technology{CapexPerMW: 1_600_000, OpexPerMWYear: 32_000},
		BatteryCapexPerMW:     600_000,
		BatteryOpexPerMWhYear: 6_650,
		DiscountRate:          0.06,
		LifetimePVWindYears:   20,
		LifetimeBatteryYears:  15,
		RoundTripEfficiency:   0.88,
		MinSOCFraction:        0.1,
		GridPurchasePrice:     169.9,
		FeedInTariff:          make([]float64, h.Steps),
	}
}

func TestParamsValidate(t *testing.T) {
	h, err := NewHorizon(0.25, 1.0/24)
	require.NoError(t, err)

	require.NoError(t, validParams(h).Validate(h))

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"min soc above one", func(p *Params) { p.MinSOCFraction = 1.5 }},
		{"min soc negative", func(p *Params) { p.MinSOCFraction = -0.1 }},
		{"short tariff", func(p *Params) { p.FeedInTariff = p.FeedInTariff[:2] }},
		{"negative limit", func(p *Params) { p.Limits.BatteryMW = Limit(-1) }},
		{"nan limit", func(p *Params) { p.Limits.PVMW = Limit(math.NaN()) }},
		{"nan tariff", func(p *Params) { p.FeedInTariff[2] = math.NaN() }},
		{"infinite tariff", func(p *Params) { p.FeedInTariff[0] = math.Inf(-1) }},
		{"nan grid price", func(p *Params) { p.GridPurchasePrice = math.NaN() }},
		{"infinite grid price", func(p *Params) { p.GridPurchasePrice = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams(h)
			tt.mutate(&p)
			err := p.Validate(h)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindInput))
		})
	}
}

func TestParamsValidateIgnoresEfficiency(t *testing.T) {
	h, err := NewHorizon(1, 1)
	require.NoError(t, err)
	p := validParams(h)
	p.RoundTripEfficiency = 7
	assert.NoError(t, p.Validate(h))
}

func TestProfilesValidate(t *testing.T) {
	h, err := NewHorizon(0.25, 1.0/24)
	require.NoError(t, err)

	ok := Profiles{Demand: make([]float64, 4), PVYield: make([]float64, 4), WindYield: make([]float64, 4)}
	assert.NoError(t, ok.Validate(h))

	short := ok
	short.WindYield = make([]float64, 3)
	assert.True(t, IsKind(short.Validate(h), KindInput))

	neg := Profiles{Demand: []float64{1, -1, 0, 0}, PVYield: make([]float64, 4), WindYield: make([]float64, 4)}
	assert.Error(t, neg.Validate(h))

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		p := Profiles{Demand: make([]float64, 4), PVYield: make([]float64, 4), WindYield: []float64{0, bad, 0, 0}}
		err := p.Validate(h)
		require.Error(t, err, bad)
		assert.True(t, IsKind(err, KindInput))
		assert.Contains(t, err.Error(), "wind yield[1] is not finite")
	}
}

func TestClampNonNegative(t *testing.T) {
	v := []float64{1, -2, 0, -0.5}
	assert.Equal(t, 2, ClampNonNegative(v))
	assert.Equal(t, []float64{1, 0, 0, 0}, v)
	assert.Equal(t, 1.0, Sum(v))
}

func TestErrorKinds(t *testing.T) {
	err := InputError("loader", "bad row %d", 3)
	assert.True(t, IsKind(err, KindInput))
	assert.False(t, IsKind(err, KindSolver))
	assert.False(t, IsKind(errors.New("plain"), KindInput))
	assert.Contains(t, err.Error(), "bad row 3")
}
