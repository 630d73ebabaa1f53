package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	golp "gonum.org/v1/gonum/optimize/convex/lp"

	"energy-sizing/internal/lp"
)

const (
	defaultTolerance = 1e-9
	// feasTol matches gonum's acceptance of slightly negative basic values.
	feasTol = 1e-13
	// cleanTol snaps solver noise around zero back to zero.
	cleanTol = 1e-9
)

// simplexSlots bounds concurrent gonum solves process-wide. A slot is released
// when gonum returns, not when the caller gives up.
var simplexSlots = make(chan struct{}, 2)

// Simplex solves problems in-process with gonum's dense simplex.
// It is meant for short horizons; MaxRows caps the standard-form row count and
// cannot be raised above DefaultMaxRows.
type Simplex struct {
	Tolerance float64
	MaxRows   int
	Logger    zerolog.Logger
}

func (s *Simplex) Name() string { return BackendSimplex }

func (s *Simplex) maxRows() int {
	if s.MaxRows <= 0 || s.MaxRows > DefaultMaxRows {
		return DefaultMaxRows
	}
	return s.MaxRows
}

// Fits reports whether p is small enough for this backend.
func (s *Simplex) Fits(p *lp.Problem) bool {
	return standardRows(p) <= s.maxRows()
}

func standardRows(p *lp.Problem) int {
	n := len(p.Constraints)
	for _, v := range p.Vars {
		if !math.IsInf(v.Upper, 1) {
			n++
		}
	}
	return n
}

func (s *Simplex) Solve(ctx context.Context, p *lp.Problem) (*lp.Result, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("simplex: %w", err)
	}
	if rows := standardRows(p); rows > s.maxRows() {
		return nil, fmt.Errorf("simplex: problem has %d rows, limit is %d (use the cbc backend)", rows, s.maxRows())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sf, decided := toStandardForm(p)
	if decided != nil {
		decided.Solver = s.Name()
		return decided, nil
	}
	m, n := sf.a.Dims()
	if m == 0 {
		return &lp.Result{Status: lp.Optimal, Values: make([]float64, len(p.Vars)), Solver: s.Name()}, nil
	}
	if m > n {
		return &lp.Result{Status: lp.Undefined, Solver: s.Name(), Detail: "more rows than columns after presolve"}, nil
	}

	basis := sf.basis
	if basis != nil && !feasibleBasis(sf, basis) {
		s.Logger.Debug().Str("problem", p.Name).Msg("basis hint rejected, starting from phase one")
		basis = nil
	}

	tol := s.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}

	type outcome struct {
		x   []float64
		err error
	}
	select {
	case simplexSlots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("simplex: waiting for a free solver slot: %w", ctx.Err())
	}
	done := make(chan outcome, 1)
	start := time.Now()
	s.Logger.Debug().Str("problem", p.Name).Int("rows", m).Int("cols", n).Bool("warm_start", basis != nil).Msg("simplex started")
	// gonum's simplex cannot be interrupted; on cancellation the goroutine runs to
	// completion unobserved and keeps its slot until then.
	go func() {
		defer func() { <-simplexSlots }()
		_, x, err := golp.Simplex(sf.c, sf.a, sf.b, tol, basis)
		done <- outcome{x: x, err: err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("simplex: %w", ctx.Err())
	case out = <-done:
	}

	res := &lp.Result{Solver: s.Name()}
	switch {
	case out.err == nil:
		res.Status = lp.Optimal
		res.Values = sf.expand(out.x, len(p.Vars))
		res.Objective = p.ObjectiveValue(res.Values)
	case errors.Is(out.err, golp.ErrInfeasible):
		res.Status = lp.Infeasible
		res.Detail = out.err.Error()
	case errors.Is(out.err, golp.ErrUnbounded):
		res.Status = lp.Unbounded
		res.Detail = out.err.Error()
	default:
		res.Status = lp.Undefined
		res.Detail = out.err.Error()
	}
	s.Logger.Debug().Str("problem", p.Name).Str("status", res.Status.String()).Dur("elapsed", time.Since(start)).Msg("simplex finished")
	return res, nil
}

// standardForm is p rewritten as min c'x, Ax = b, x >= 0.
type standardForm struct {
	c     []float64
	a     *mat.Dense
	b     []float64
	cols  []int // original variable per column, -1 for slack columns
	basis []int
}

// expand maps standard-form values back onto the original variables.
func (sf *standardForm) expand(x []float64, nVars int) []float64 {
	out := make([]float64, nVars)
	for j, v := range sf.cols {
		if v < 0 || j >= len(x) {
			continue
		}
		val := x[j]
		if math.Abs(val) < cleanTol {
			val = 0
		}
		out[v] = val
	}
	return out
}

// toStandardForm adds slack and surplus columns, turns finite upper bounds into
// rows and presolves away empty rows and columns. A non-nil Result means the
// presolve already decided the problem.
func toStandardForm(p *lp.Problem) (*standardForm, *lp.Result) {
	nVars := len(p.Vars)

	rows := make([][]lp.Term, len(p.Constraints))
	active := make([]bool, nVars)
	for i, c := range p.Constraints {
		rows[i] = mergeTerms(c.Terms)
		for _, t := range rows[i] {
			active[t.Var] = true
		}
	}
	for v, vr := range p.Vars {
		if !math.IsInf(vr.Upper, 1) {
			active[v] = true
		}
	}
	for v := range p.Vars {
		if !active[v] && p.Objective[v] < 0 {
			return nil, &lp.Result{Status: lp.Unbounded, Detail: fmt.Sprintf("%s has negative cost and no constraints", p.Vars[v].Name)}
		}
	}

	var kept []int
	for i, c := range p.Constraints {
		if len(rows[i]) > 0 {
			kept = append(kept, i)
			continue
		}
		if !emptyRowHolds(c.Sense, c.RHS) {
			return nil, &lp.Result{Status: lp.Infeasible, Detail: fmt.Sprintf("constraint %s cannot hold: 0 %s %v", c.Name, c.Sense, c.RHS)}
		}
	}

	sf := &standardForm{}
	colOf := make([]int, nVars)
	for v := range colOf {
		colOf[v] = -1
		if active[v] {
			colOf[v] = len(sf.cols)
			sf.cols = append(sf.cols, v)
			sf.c = append(sf.c, p.Objective[v])
		}
	}
	slackOf := make(map[int]int)
	for _, i := range kept {
		if p.Constraints[i].Sense != lp.Equal {
			slackOf[i] = len(sf.cols)
			sf.cols = append(sf.cols, -1)
			sf.c = append(sf.c, 0)
		}
	}
	var bounded []int
	for v, vr := range p.Vars {
		if !math.IsInf(vr.Upper, 1) {
			bounded = append(bounded, v)
			sf.cols = append(sf.cols, -1)
			sf.c = append(sf.c, 0)
		}
	}

	m, n := len(kept)+len(bounded), len(sf.cols)
	sf.b = make([]float64, m)
	if m == 0 {
		sf.a = &mat.Dense{}
		return sf, nil
	}
	sf.a = mat.NewDense(m, n, nil)
	for r, i := range kept {
		c := p.Constraints[i]
		for _, t := range rows[i] {
			sf.a.Set(r, colOf[t.Var], t.Coef)
		}
		switch c.Sense {
		case lp.LessEqual:
			sf.a.Set(r, slackOf[i], 1)
		case lp.GreaterEqual:
			sf.a.Set(r, slackOf[i], -1)
		}
		sf.b[r] = c.RHS
	}
	boundSlack := n - len(bounded)
	for k, v := range bounded {
		r := len(kept) + k
		sf.a.Set(r, colOf[v], 1)
		sf.a.Set(r, boundSlack+k, 1)
		sf.b[r] = p.Vars[v].Upper
	}

	if p.BasisHint != nil {
		sf.basis = hintColumns(p, kept, colOf, slackOf, boundSlack, len(bounded))
	}
	return sf, nil
}

func hintColumns(p *lp.Problem, kept, colOf []int, slackOf map[int]int, boundSlack, nBounded int) []int {
	basis := make([]int, 0, len(kept)+nBounded)
	used := make(map[int]bool)
	for _, i := range kept {
		h := p.BasisHint[i]
		var col int
		switch {
		case h == lp.SlackBasis:
			s, ok := slackOf[i]
			if !ok {
				return nil
			}
			col = s
		case h >= 0 && h < len(colOf) && colOf[h] >= 0:
			col = colOf[h]
		default:
			return nil
		}
		if used[col] {
			return nil
		}
		used[col] = true
		basis = append(basis, col)
	}
	for k := 0; k < nBounded; k++ {
		basis = append(basis, boundSlack+k)
	}
	return basis
}

// feasibleBasis reports whether the columns in basis form a nonsingular basis
// with non-negative values, which gonum requires of a starting basis.
func feasibleBasis(sf *standardForm, basis []int) bool {
	m, _ := sf.a.Dims()
	if len(basis) != m {
		return false
	}
	ab := mat.NewDense(m, m, nil)
	col := make([]float64, m)
	for j, idx := range basis {
		mat.Col(col, idx, sf.a)
		ab.SetCol(j, col)
	}
	var xb mat.VecDense
	if err := xb.SolveVec(ab, mat.NewVecDense(m, sf.b)); err != nil {
		return false
	}
	for i := 0; i < m; i++ {
		if xb.AtVec(i) < -feasTol {
			return false
		}
	}
	return true
}

func mergeTerms(terms []lp.Term) []lp.Term {
	if len(terms) == 0 {
		return nil
	}
	pos := make(map[int]int, len(terms))
	out := make([]lp.Term, 0, len(terms))
	for _, t := range terms {
		if i, ok := pos[t.Var]; ok {
			out[i].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(out)
		out = append(out, t)
	}
	n := 0
	for _, t := range out {
		if t.Coef != 0 {
			out[n] = t
			n++
		}
	}
	return out[:n]
}

func emptyRowHolds(sense lp.Sense, rhs float64) bool {
	switch sense {
	case lp.LessEqual:
		return rhs >= -cleanTol
	case lp.GreaterEqual:
		return rhs <= cleanTol
	default:
		return math.Abs(rhs) <= cleanTol
	}
}
