package profiles

import (
	"math"
	"math/rand"
	"sort"

	"energy-sizing/internal/model"
)

// TariffPolicy picks which intervals receive no feed-in payment.
type TariffPolicy string

const (
	// PolicyRandom samples intervals uniformly without replacement from a seeded source.
	PolicyRandom TariffPolicy = "random"
	// PolicyLowestDemand zeroes the intervals with the lowest demand, a proxy for
	// surplus hours with negative exchange prices.
	PolicyLowestDemand TariffPolicy = "lowest_demand"
)

// DefaultTariffSeed keeps tariff profiles reproducible across runs.
const DefaultTariffSeed = 42

// TariffSpec configures FeedInTariff.
type TariffSpec struct {
	// Value is the payment in currency per MWh for every other interval.
	Value float64
	// ZeroHours is the number of hours per period without payment.
	ZeroHours float64
	Policy    TariffPolicy
	Seed      int64
}

// ZeroTariffSteps converts ZeroHours into a count of intervals, capped at the horizon.
func ZeroTariffSteps(h model.Horizon, zeroHours float64) int {
	if zeroHours <= 0 || h.StepHours <= 0 {
		return 0
	}
	return int(math.Min(zeroHours/h.StepHours, float64(h.Steps)))
}

// FeedInTariff builds the per-interval tariff and returns it with the zeroed indices.
// demand is only read by PolicyLowestDemand.
func FeedInTariff(h model.Horizon, spec TariffSpec, demand []float64) ([]float64, []int, error) {
	if spec.Value < 0 || math.IsNaN(spec.Value) {
		return nil, nil, model.InputError("tariff", "feed-in tariff must be >= 0, got %v", spec.Value)
	}
	k := ZeroTariffSteps(h, spec.ZeroHours)

	var zeroed []int
	switch spec.Policy {
	case PolicyRandom, "":
		rng := rand.New(rand.NewSource(spec.Seed))
		zeroed = rng.Perm(h.Steps)[:k]
	case PolicyLowestDemand:
		if len(demand) != h.Steps {
			return nil, nil, model.InputError("tariff", "demand has %d values, expected %d", len(demand), h.Steps)
		}
		order := make([]int, h.Steps)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return demand[order[a]] < demand[order[b]] })
		zeroed = order[:k]
	default:
		return nil, nil, model.InputError("tariff", "unknown tariff policy %q", spec.Policy)
	}

	tariff := ConstantYield(h, spec.Value)
	for _, i := range zeroed {
		tariff[i] = 0
	}
	sort.Ints(zeroed)
	return tariff, zeroed, nil
}
