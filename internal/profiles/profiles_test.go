package profiles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-sizing/internal/model"
)

func hourHorizon(t *testing.T) model.Horizon {
	t.Helper()
	h, err := model.NewHorizon(0.25, 1.0/24)
	require.NoError(t, err)
	return h
}

func TestReadYieldCSVWithCapacities(t *testing.T) {
	in := `timestamp,wind_mwh,pv_mwh,wind_mw,pv_mw
2024-01-01 00:00:00,10,0,20,4
2024-01-01 00:15:00,20,2,,
2024-01-01 00:30:00,-2,4,,
2024-01-01 00:45:00,0,"1,0",,
`
	d, err := ReadYieldCSV(strings.NewReader(in), hourHorizon(t))
	require.NoError(t, err)
	assert.Equal(t, 20.0, d.InstalledWindMW)
	assert.Equal(t, 4.0, d.InstalledPVMW)
	assert.Equal(t, []float64{0.5, 1, 0, 0}, d.WindYield)
	assert.Equal(t, []float64{0, 0.5, 1, 0.25}, d.PVYield)
	assert.Equal(t, 1, d.Clamped)
	require.Len(t, d.Diagnostics, 1)
	assert.Contains(t, d.Diagnostics[0].Message, "clamped")
	assert.Equal(t, time.Date(2024, 1, 1, 0, 45, 0, 0, time.UTC), d.Timestamps[3])
}

func TestReadYieldCSVWithoutCapacities(t *testing.T) {
	in := "ts,wind,pv\n,0.1,0\n,0.2,0.1\n,0.3,0.2\n,0.4,0\n"
	d, err := ReadYieldCSV(strings.NewReader(in), hourHorizon(t))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, d.WindYield)
	assert.Equal(t, float64(FallbackWindMW), d.InstalledWindMW)
	assert.Equal(t, float64(FallbackPVMW), d.InstalledPVMW)
	require.Len(t, d.Diagnostics, 1)
	assert.Equal(t, model.KindNumeric, d.Diagnostics[0].Kind)
	assert.True(t, d.Timestamps[0].IsZero())
}

func TestReadYieldCSVErrors(t *testing.T) {
	h := hourHorizon(t)
	tests := []struct {
		name string
		in   string
		msg  string
	}{
		{"empty", "", "empty"},
		{"too few columns", "ts,wind\n", "at least 3"},
		{"wrong row count", "ts,wind,pv\n,1,1\n", "expected 4"},
		{"zero capacity", "ts,w,p,wc,pc\n,1,1,0,5\n,1,1,,\n,1,1,,\n,1,1,,\n", "installed capacity"},
		{"bad number", "ts,w,p\n,abc,1\n", "line 2"},
		{"bad timestamp", "ts,w,p\nyesterday,1,1\n", "timestamp"},
		{"nan yield", "ts,w,p\n,NaN,0\n,0,0\n,0,0\n,0,0\n", "not finite"},
		{"infinite yield", "ts,w,p\n,0,0\n,0,Inf\n,0,0\n,0,0\n", "line 3 pv"},
		{"infinite capacity", "ts,w,p,wc,pc\n,1,1,+Inf,5\n,1,1,,\n,1,1,,\n,1,1,,\n", "installed wind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadYieldCSV(strings.NewReader(tt.in), h)
			require.Error(t, err)
			assert.True(t, model.IsKind(err, model.KindInput))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadYieldCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yield.csv")
	require.NoError(t, os.WriteFile(path, []byte("ts,w,p\n,1,0\n,1,0\n,1,0\n,1,0\n"), 0o644))
	d, err := LoadYieldCSV(path, hourHorizon(t))
	require.NoError(t, err)
	assert.Len(t, d.PVYield, 4)

	_, err = LoadYieldCSV(filepath.Join(t.TempDir(), "missing.csv"), hourHorizon(t))
	assert.True(t, model.IsKind(err, model.KindInput))
}

func TestConstantDemand(t *testing.T) {
	d, err := ConstantDemand(hourHorizon(t), 3629)
	require.NoError(t, err)
	require.Len(t, d, 4)
	assert.InDelta(t, 0.90725, d[0], 1e-12)
	assert.InDelta(t, 3.629, model.Sum(d), 1e-9)

	_, err = ConstantDemand(hourHorizon(t), -1)
	assert.Error(t, err)
}

func countZeros(v []float64) int {
	n := 0
	for _, x := range v {
		if x == 0 {
			n++
		}
	}
	return n
}

func TestFeedInTariffZeroCount(t *testing.T) {
	year, err := model.NewHorizon(0.25, 366)
	require.NoError(t, err)
	week, err := model.NewHorizon(1, 7)
	require.NoError(t, err)

	tests := []struct {
		name      string
		h         model.Horizon
		zeroHours float64
		want      int
	}{
		{"full year", year, 459, 1836},
		{"fractional hours truncate", year, 10.1, 40},
		{"capped at horizon", week, 1000, 168},
		{"none", week, 0, 0},
		{"negative hours", week, -5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tariff, zeroed, err := FeedInTariff(tt.h, TariffSpec{Value: 50, ZeroHours: tt.zeroHours, Seed: DefaultTariffSeed}, nil)
			require.NoError(t, err)
			require.Len(t, tariff, tt.h.Steps)
			assert.Equal(t, tt.want, countZeros(tariff))
			assert.Len(t, zeroed, tt.want)
			assert.Equal(t, tt.want, ZeroTariffSteps(tt.h, tt.zeroHours))
		})
	}
}

func TestFeedInTariffReproducible(t *testing.T) {
	h, err := model.NewHorizon(0.25, 7)
	require.NoError(t, err)
	spec := TariffSpec{Value: 50, ZeroHours: 20, Policy: PolicyRandom, Seed: 42}
	a, za, err := FeedInTariff(h, spec, nil)
	require.NoError(t, err)
	b, zb, err := FeedInTariff(h, spec, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, za, zb)

	spec.Seed = 7
	_, zc, err := FeedInTariff(h, spec, nil)
	require.NoError(t, err)
	assert.NotEqual(t, za, zc)
}

func TestFeedInTariffLowestDemand(t *testing.T) {
	h := hourHorizon(t)
	tariff, zeroed, err := FeedInTariff(h, TariffSpec{Value: 50, ZeroHours: 0.5, Policy: PolicyLowestDemand}, []float64{3, 1, 2, 0})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, zeroed)
	assert.Equal(t, []float64{50, 0, 50, 0}, tariff)

	_, _, err = FeedInTariff(h, TariffSpec{Policy: PolicyLowestDemand, ZeroHours: 1}, []float64{1})
	assert.Error(t, err)
	_, _, err = FeedInTariff(h, TariffSpec{Policy: "weekend"}, nil)
	assert.Error(t, err)
}

func TestSyntheticPV(t *testing.T) {
	h, err := model.NewHorizon(0.25, 1)
	require.NoError(t, err)
	site := SolarSite{
		Latitude:         52.5,
		Longitude:        13.4,
		Start:            time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
		PerformanceRatio: 0.8,
	}
	pv, err := SyntheticPV(h, site)
	require.NoError(t, err)
	require.Len(t, pv, 96)

	assert.Equal(t, 0.0, pv[0], "midnight UTC")
	noon := pv[11*4] // 11:00 UTC is close to solar noon in Berlin
	assert.Greater(t, noon, 0.15)
	assert.LessOrEqual(t, noon, 0.8*0.25)
	for _, v := range pv {
		assert.GreaterOrEqual(t, v, 0.0)
	}

	site.PerformanceRatio = 0
	_, err = SyntheticPV(h, site)
	assert.Error(t, err)
}
