package models

import (
	"energy-sizing/internal/analysis"
	"energy-sizing/internal/config"
	"energy-sizing/internal/store"
	"energy-sizing/internal/study"
)

// StudyResponse represents the response from a study run
type StudyResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name,omitempty"`
	Status      string              `json:"status"`
	Solver      string              `json:"solver"`
	SolveTimeMS int64               `json:"solve_time_ms"`
	Steps       int                 `json:"steps"`
	Report      *analysis.Report    `json:"report,omitempty"`
	Ledger      []study.DispatchRow `json:"ledger,omitempty"`
}

// NewStudyResponse flattens an outcome for the API.
func NewStudyResponse(o *study.Outcome, includeLedger bool) StudyResponse {
	resp := StudyResponse{
		ID:          o.ID,
		Name:        o.Name,
		Status:      o.Status.String(),
		Solver:      o.Solver,
		SolveTimeMS: o.SolveTime.Milliseconds(),
		Steps:       o.Steps,
		Report:      o.Report,
	}
	if includeLedger {
		resp.Ledger = o.Ledger
	}
	return resp
}

// DispatchResponse is the ledger of one study
type DispatchResponse struct {
	ID     string              `json:"id"`
	Ledger []study.DispatchRow `json:"ledger"`
}

// CompareStudiesResponse represents the response from a comparison
type CompareStudiesResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation.
// Rank is 0 for variations without an optimal solution.
type ComparisonResult struct {
	Rank       int              `json:"rank"`
	Name       string           `json:"name"`
	ID         string           `json:"id"`
	Status     string           `json:"status"`
	SystemLCOE analysis.Ratio   `json:"system_lcoe"`
	Report     *analysis.Report `json:"report,omitempty"`
}

// StudyListResponse lists archived studies, newest first
type StudyListResponse struct {
	Studies []store.StudyRow `json:"studies"`
}

// ScenarioListResponse lists the scenario presets
type ScenarioListResponse struct {
	Scenarios []config.ScenarioInfo `json:"scenarios"`
}

// SolverInfo describes one solver backend
type SolverInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	MaxRows     int    `json:"max_rows,omitempty"`
	Default     bool   `json:"default"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
