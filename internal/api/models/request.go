package models

import "energy-sizing/internal/config"

// StudyRequest represents the request body for running a study.
// Assumptions are layered: server config, then the named scenario preset, then Overrides.
type StudyRequest struct {
	Name      string           `json:"name,omitempty"`
	Scenario  string           `json:"scenario,omitempty"` // preset id, e.g. "no_battery"
	Overrides config.Overrides `json:"overrides,omitempty"`
	Profiles  *ProfilesInput   `json:"profiles,omitempty"`
	Options   StudyOptions     `json:"options,omitempty"`
}

// ProfilesInput supplies the time series inline instead of the server's input source.
// Lengths must match the horizon (days*24/step_hours).
type ProfilesInput struct {
	Demand    []float64 `json:"demand_mwh,omitempty"` // default: constant load from config
	PVYield   []float64 `json:"pv_yield" binding:"required"`
	WindYield []float64 `json:"wind_yield" binding:"required"`
}

// StudyOptions contains optional study parameters
type StudyOptions struct {
	Backend       string `json:"backend,omitempty"`        // simplex, cbc or auto
	IncludeLedger bool   `json:"include_ledger,omitempty"` // default: false
}

// CompareStudiesRequest runs one study per variation on a shared base.
type CompareStudiesRequest struct {
	Base       StudyRequest     `json:"base"`
	Variations []StudyVariation `json:"variations" binding:"required,min=1,dive"`
}

// StudyVariation defines a variation to test
type StudyVariation struct {
	Name      string           `json:"name" binding:"required"`
	Scenario  string           `json:"scenario,omitempty"`
	Overrides config.Overrides `json:"overrides,omitempty"`
}
