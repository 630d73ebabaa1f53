// Package study runs one sizing study end to end: build the model, solve it,
// analyse the result and lay out the per-interval dispatch ledger.
package study

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"energy-sizing/internal/analysis"
	"energy-sizing/internal/lp"
	"energy-sizing/internal/model"
	"energy-sizing/internal/sizing"
	"energy-sizing/internal/solver"
)

type Engine struct {
	Solver   solver.Solver
	Analysis analysis.Options
	// Timeout bounds a single solve. Zero leaves only the caller's context.
	Timeout time.Duration
	Logger  zerolog.Logger
}

func New(s solver.Solver, opts analysis.Options, logger zerolog.Logger) *Engine {
	return &Engine{Solver: s, Analysis: opts, Logger: logger}
}

// Outcome is the result of one study. Report and Ledger are only set when the
// solver proved optimality; any other status ends the study without them.
type Outcome struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Status    lp.Status     `json:"status"`
	Solver    string        `json:"solver"`
	SolveTime time.Duration `json:"solve_time_ns"`
	Steps     int           `json:"steps"`
	StepHours float64       `json:"step_hours"`
	Days      float64       `json:"days"`

	Solution *sizing.Solution `json:"-"`
	Report   *analysis.Report `json:"report,omitempty"`
	Ledger   []DispatchRow    `json:"-"`

	ZeroTariffSteps int `json:"zero_tariff_steps"`

	Model *sizing.Model `json:"-"`
}

// Optimal reports whether the outcome carries a report.
func (o *Outcome) Optimal() bool { return o != nil && o.Status == lp.Optimal }

// Run executes a study over a single input.
// Input errors and backend failures are returned as errors; a solve that ends
// infeasible, unbounded or undecided is a valid Outcome without a report.
func (e *Engine) Run(ctx context.Context, in *Input) (*Outcome, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if e.Solver == nil {
		return nil, fmt.Errorf("solver is nil")
	}

	m, err := sizing.Build(in.Horizon, in.Profiles, in.Params)
	if err != nil {
		return nil, err
	}
	diagnostics := append(append([]model.Diagnostic(nil), in.Diagnostics...), m.Diagnostics...)
	for _, d := range diagnostics {
		e.Logger.Warn().Str("kind", string(d.Kind)).Str("source", d.Source).Msg(d.Message)
	}

	out := &Outcome{
		ID:              uuid.NewString(),
		Name:            in.Name,
		CreatedAt:       time.Now().UTC(),
		Solver:          e.Solver.Name(),
		Steps:           in.Horizon.Steps,
		StepHours:       in.Horizon.StepHours,
		Days:            in.Horizon.Days,
		ZeroTariffSteps: len(in.ZeroTariffSteps),
		Model:           m,
	}

	e.Logger.Info().
		Str("study", out.ID).
		Str("solver", out.Solver).
		Int("variables", m.Problem.NumVars()).
		Int("constraints", m.Problem.NumConstraints()).
		Msg("solving")

	solveCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	started := time.Now()
	res, err := e.Solver.Solve(solveCtx, m.Problem)
	out.SolveTime = time.Since(started)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	out.Status = res.Status
	if res.Solver != "" {
		out.Solver = res.Solver
	}

	log := e.Logger.Info()
	if !res.Optimal() {
		log = e.Logger.Warn()
	}
	log.Str("study", out.ID).Str("status", res.Status.String()).Dur("elapsed", out.SolveTime).Msg("solve finished")
	if !res.Optimal() {
		return out, nil
	}

	sol, err := m.Decode(res)
	if err != nil {
		return nil, err
	}
	report, err := analysis.AnalyzeSolution(m, sol, e.Analysis)
	if err != nil {
		return nil, err
	}
	report.Diagnostics = diagnostics
	for _, w := range report.Warnings {
		e.Logger.Warn().Str("check", w.Check).Float64("residual", w.Residual).Float64("tolerance", w.Tolerance).Msg(w.Message)
	}
	out.Report = report
	out.Solution = sol
	out.Ledger = BuildLedger(m, sol, in.Timestamps)
	return out, nil
}
