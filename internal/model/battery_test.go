package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitRoundTripLegs(t *testing.T) {
	legs, diags := SplitRoundTrip(0.81)
	assert.Empty(t, diags)
	assert.InDelta(t, 0.9, legs.Charge, 1e-12)
	assert.InDelta(t, 1/0.9, legs.DischargeInverse, 1e-12)
}

func TestRoundTripRecoversEfficiency(t *testing.T) {
	for _, eff := range []float64{1, 0.95, 0.88, 0.5, 0.1, 1e-4} {
		legs, diags := SplitRoundTrip(eff)
		assert.Empty(t, diags)
		stored := legs.Stored(1, 0)
		recovered := legs.MaxDischarge(stored)
		assert.InDelta(t, eff, recovered, 1e-12, "eff=%v", eff)
		assert.InDelta(t, 0, stored+legs.Stored(0, recovered), 1e-12)
	}
}

func TestSplitRoundTripFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		eff     float64
		charge  float64
		inverse float64
	}{
		{"above one", 1.2, 1, 1},
		{"negative", -0.1, 1, 1},
		{"nan", math.NaN(), 1, 1},
		{"zero", 0, 0, 1e12},
		{"near zero", 1e-20, 1e-10, 1e9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			legs, diags := SplitRoundTrip(tt.eff)
			assert.Len(t, diags, 1)
			assert.Equal(t, KindNumeric, diags[0].Kind)
			assert.InDelta(t, tt.charge, legs.Charge, 1e-15)
			assert.InDelta(t, tt.inverse, legs.DischargeInverse, 1e-3)
		})
	}
}

func TestActionFromFlows(t *testing.T) {
	assert.Equal(t, ActionCharging, ActionFromFlows(1, 0))
	assert.Equal(t, ActionDischarging, ActionFromFlows(0, 1))
	assert.Equal(t, ActionIdle, ActionFromFlows(0, 0))
	assert.Equal(t, ActionIdle, ActionFromFlows(1e-12, 0))
}
