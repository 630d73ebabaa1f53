package model

import (
	"fmt"
	"math"
)

const (
	// legEpsilon is the smallest usable one-way efficiency.
	legEpsilon = 1e-9
	// zeroEfficiencyInverse stands in for 1/sqrt(0): discharging drains far more
	// stored energy than it delivers.
	zeroEfficiencyInverse = 1e12
)

// StorageLegs splits a round-trip efficiency into its charge and discharge legs.
// Stored energy changes by Charge*charge - DischargeInverse*discharge.
type StorageLegs struct {
	Charge           float64
	DischargeInverse float64
}

// SplitRoundTrip returns sqrt(eff) for both legs so that a full cycle loses
// exactly 1-eff. Out-of-range and degenerate efficiencies fall back as documented
// and are reported as diagnostics.
func SplitRoundTrip(eff float64) (StorageLegs, []Diagnostic) {
	if math.IsNaN(eff) || eff < 0 || eff > 1 {
		return StorageLegs{Charge: 1, DischargeInverse: 1}, []Diagnostic{{
			Kind:    KindNumeric,
			Source:  "battery efficiency",
			Message: fmt.Sprintf("round-trip efficiency %v outside [0, 1], using 100%%", eff),
		}}
	}
	leg := math.Sqrt(eff)
	switch {
	case leg > legEpsilon:
		return StorageLegs{Charge: leg, DischargeInverse: 1 / leg}, nil
	case eff == 0:
		return StorageLegs{Charge: 0, DischargeInverse: zeroEfficiencyInverse}, []Diagnostic{{
			Kind:    KindNumeric,
			Source:  "battery efficiency",
			Message: "round-trip efficiency is 0, storage cannot return energy",
		}}
	default:
		return StorageLegs{Charge: leg, DischargeInverse: 1 / legEpsilon}, []Diagnostic{{
			Kind:    KindNumeric,
			Source:  "battery efficiency",
			Message: fmt.Sprintf("round-trip efficiency %v is close to 0", eff),
		}}
	}
}

// Stored returns the change in stored energy for one interval.
func (l StorageLegs) Stored(charge, discharge float64) float64 {
	return charge*l.Charge - discharge*l.DischargeInverse
}

// MaxDischarge is the delivered energy that empties storedMWh exactly.
func (l StorageLegs) MaxDischarge(storedMWh float64) float64 {
	if l.DischargeInverse <= 0 {
		return 0
	}
	return storedMWh / l.DischargeInverse
}
