package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHorizon(t *testing.T) {
	tests := []struct {
		name      string
		stepHours float64
		days      float64
		wantSteps int
		wantErr   bool
	}{
		{"leap year quarter hours", 0.25, 366, 35136, false},
		{"one hour quarter hours", 0.25, 1.0 / 24, 4, false},
		{"hourly week", 1, 7, 168, false},
		{"zero resolution", 0, 366, 0, true},
		{"negative resolution", -0.25, 366, 0, true},
		{"zero days", 0.25, 0, 0, true},
		{"not a multiple", 0.7, 1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHorizon(tt.stepHours, tt.days)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsKind(err, KindInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSteps, h.Steps)
			assert.InDelta(t, tt.days*24, h.Hours(), 1e-9)
		})
	}
}

func TestHorizonAnnualScale(t *testing.T) {
	h, err := NewHorizon(0.25, 366)
	require.NoError(t, err)
	assert.InDelta(t, 365.25/366, h.AnnualScale(), 1e-12)
	assert.Equal(t, 4.0, h.StepsPerHour())
}

func TestHorizonTimestamps(t *testing.T) {
	h, err := NewHorizon(0.25, 1.0/24)
	require.NoError(t, err)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := h.Timestamps(start)
	require.Len(t, ts, 4)
	assert.Equal(t, start.Add(45*time.Minute), ts[3])
}
