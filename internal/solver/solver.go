// Package solver adapts lp.Problem to concrete LP backends.
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"energy-sizing/internal/lp"
)

// Solver solves a problem once. Every terminal status, including infeasible and
// unbounded, is reported through the Result; an error means the backend itself failed.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p *lp.Problem) (*lp.Result, error)
}

const (
	BackendSimplex = "simplex"
	BackendCBC     = "cbc"
	BackendAuto    = "auto"
)

// DefaultMaxRows bounds the dense in-process simplex. The sizing model has
// 6*steps+3 rows, so this admits 32 steps (8 hours at 15 minutes). gonum's
// simplex time grows steeply past that and cannot be interrupted.
const DefaultMaxRows = 200

// Options selects and configures a backend.
type Options struct {
	Backend   string
	Binary    string
	TimeLimit time.Duration
	Verbose   bool
	Tolerance float64
	MaxRows   int
	WorkDir   string
}

// Backends lists the accepted Options.Backend values.
func Backends() []string {
	return []string{BackendSimplex, BackendCBC, BackendAuto}
}

// New builds the solver named by opts.Backend.
func New(opts Options, logger zerolog.Logger) (Solver, error) {
	simplex := &Simplex{Tolerance: opts.Tolerance, MaxRows: opts.MaxRows, Logger: logger}
	cbc := &CBC{Binary: opts.Binary, TimeLimit: opts.TimeLimit, Verbose: opts.Verbose, WorkDir: opts.WorkDir, Logger: logger}
	switch opts.Backend {
	case BackendSimplex:
		return simplex, nil
	case BackendCBC:
		return cbc, nil
	case BackendAuto, "":
		return &Auto{Small: simplex, Large: cbc}, nil
	default:
		return nil, fmt.Errorf("unknown solver backend %q (expected one of %v)", opts.Backend, Backends())
	}
}

// Auto prefers CBC and falls back to the in-process simplex for problems that
// fit it when CBC is not installed.
type Auto struct {
	Small *Simplex
	Large Solver
}

func (a *Auto) Name() string { return BackendAuto }

type availability interface {
	Available() bool
}

func (a *Auto) largeAvailable() bool {
	av, ok := a.Large.(availability)
	return !ok || av.Available()
}

func (a *Auto) Solve(ctx context.Context, p *lp.Problem) (*lp.Result, error) {
	if a.largeAvailable() {
		return a.Large.Solve(ctx, p)
	}
	if a.Small.Fits(p) {
		return a.Small.Solve(ctx, p)
	}
	return nil, fmt.Errorf("auto: problem has %d rows, above the simplex limit of %d, and %s is not available", standardRows(p), a.Small.maxRows(), a.Large.Name())
}
