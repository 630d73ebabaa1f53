// Package lp holds a solver-neutral linear program: non-negative variables with
// optional upper bounds, linear constraints and a minimised objective.
package lp

import (
	"fmt"
	"math"
	"strconv"
)

// Sense is the relation of a constraint's left-hand side to its right-hand side.
type Sense int

const (
	LessEqual Sense = iota
	Equal
	GreaterEqual
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case Equal:
		return "="
	case GreaterEqual:
		return ">="
	default:
		return "?"
	}
}

// Term is one coefficient of a linear expression.
type Term struct {
	Var  int
	Coef float64
}

// Variable is a column of the problem. Every variable has lower bound 0.
// Upper is +Inf when the variable is unbounded above.
type Variable struct {
	Name  string
	Upper float64
}

// Constraint is a single row: sum(Terms) Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// SlackBasis marks a BasisHint entry whose row starts with its slack or surplus
// column in the basis.
const SlackBasis = -1

// Problem is a minimisation LP addressed by dense variable indices.
//
// BasisHint optionally lists, per constraint, the variable that is basic in a
// known feasible starting vertex (or SlackBasis). Solvers that cannot use a
// starting basis ignore it.
type Problem struct {
	Name        string
	Vars        []Variable
	Objective   []float64
	Constraints []Constraint
	BasisHint   []int
}

func NewProblem(name string) *Problem {
	return &Problem{Name: name}
}

// AddVar appends a variable and returns its index.
func (p *Problem) AddVar(name string) int {
	p.Vars = append(p.Vars, Variable{Name: name, Upper: math.Inf(1)})
	p.Objective = append(p.Objective, 0)
	return len(p.Vars) - 1
}

// AddVars appends n variables named prefix_0 .. prefix_{n-1}.
func (p *Problem) AddVars(prefix string, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = p.AddVar(prefix + "_" + strconv.Itoa(i))
	}
	return idx
}

// SetUpper sets a finite upper bound on a variable.
func (p *Problem) SetUpper(v int, upper float64) {
	p.Vars[v].Upper = upper
}

// AddObjective adds coef to the objective coefficient of v.
func (p *Problem) AddObjective(v int, coef float64) {
	p.Objective[v] += coef
}

// AddConstraint appends a row and returns its index.
func (p *Problem) AddConstraint(name string, sense Sense, rhs float64, terms ...Term) int {
	p.Constraints = append(p.Constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
	return len(p.Constraints) - 1
}

func (p *Problem) NumVars() int        { return len(p.Vars) }
func (p *Problem) NumConstraints() int { return len(p.Constraints) }

// Validate checks structural consistency: unique non-empty names, term indices in
// range and finite coefficients.
func (p *Problem) Validate() error {
	if len(p.Objective) != len(p.Vars) {
		return fmt.Errorf("objective has %d coefficients for %d variables", len(p.Objective), len(p.Vars))
	}
	seen := make(map[string]bool, len(p.Vars))
	for i, v := range p.Vars {
		if v.Name == "" {
			return fmt.Errorf("variable %d has no name", i)
		}
		if seen[v.Name] {
			return fmt.Errorf("duplicate variable name %q", v.Name)
		}
		seen[v.Name] = true
		if math.IsNaN(v.Upper) || v.Upper < 0 {
			return fmt.Errorf("variable %s has invalid upper bound %v", v.Name, v.Upper)
		}
		if !isFinite(p.Objective[i]) {
			return fmt.Errorf("variable %s has non-finite objective coefficient", v.Name)
		}
	}
	for _, c := range p.Constraints {
		if !isFinite(c.RHS) {
			return fmt.Errorf("constraint %s has non-finite right-hand side", c.Name)
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(p.Vars) {
				return fmt.Errorf("constraint %s references unknown variable %d", c.Name, t.Var)
			}
			if !isFinite(t.Coef) {
				return fmt.Errorf("constraint %s has non-finite coefficient on %s", c.Name, p.Vars[t.Var].Name)
			}
		}
	}
	if p.BasisHint != nil && len(p.BasisHint) != len(p.Constraints) {
		return fmt.Errorf("basis hint has %d entries for %d constraints", len(p.BasisHint), len(p.Constraints))
	}
	return nil
}

// Eval computes sum(coef * x[var]) over terms.
func Eval(terms []Term, x []float64) float64 {
	s := 0.0
	for _, t := range terms {
		s += t.Coef * x[t.Var]
	}
	return s
}

// ObjectiveValue evaluates the objective at x.
func (p *Problem) ObjectiveValue(x []float64) float64 {
	s := 0.0
	for i, c := range p.Objective {
		s += c * x[i]
	}
	return s
}

// MaxViolation returns the largest absolute violation of any constraint or bound at x.
func (p *Problem) MaxViolation(x []float64) float64 {
	worst := 0.0
	for i, v := range p.Vars {
		worst = math.Max(worst, -x[i])
		if !math.IsInf(v.Upper, 1) {
			worst = math.Max(worst, x[i]-v.Upper)
		}
	}
	for _, c := range p.Constraints {
		lhs := Eval(c.Terms, x)
		switch c.Sense {
		case LessEqual:
			worst = math.Max(worst, lhs-c.RHS)
		case GreaterEqual:
			worst = math.Max(worst, c.RHS-lhs)
		default:
			worst = math.Max(worst, math.Abs(lhs-c.RHS))
		}
	}
	return worst
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
