package lp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// termsPerLine wraps long rows; CPLEX-LP readers cap line length.
const termsPerLine = 8

// ColumnName returns the LP-file-safe name of variable v.
func (p *Problem) ColumnName(v int) string {
	return sanitize(p.Vars[v].Name, "x", v)
}

// RowName returns the LP-file-safe name of constraint c.
func (p *Problem) RowName(c int) string {
	return sanitize(p.Constraints[c].Name, "c", c)
}

func sanitize(name, prefix string, idx int) string {
	if name == "" {
		return prefix + strconv.Itoa(idx)
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if c := s[0]; (c >= '0' && c <= '9') || c == '.' {
		s = prefix + s
	}
	return s
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteLP writes p in CPLEX LP format.
func WriteLP(w io.Writer, p *Problem) error {
	if err := p.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "\\* %s *\\\n", p.Name)
	bw.WriteString("Minimize\n obj:")
	var obj []Term
	for i, c := range p.Objective {
		if c != 0 {
			obj = append(obj, Term{Var: i, Coef: c})
		}
	}
	writeExpr(bw, p, obj)
	bw.WriteString("\nSubject To\n")
	for i, c := range p.Constraints {
		fmt.Fprintf(bw, " %s:", p.RowName(i))
		writeExpr(bw, p, c.Terms)
		fmt.Fprintf(bw, " %s %s\n", c.Sense, formatNumber(c.RHS))
	}

	bounded := false
	for i, v := range p.Vars {
		if math.IsInf(v.Upper, 1) {
			continue
		}
		if !bounded {
			bw.WriteString("Bounds\n")
			bounded = true
		}
		fmt.Fprintf(bw, " %s <= %s\n", p.ColumnName(i), formatNumber(v.Upper))
	}
	bw.WriteString("End\n")
	return bw.Flush()
}

func writeExpr(bw *bufio.Writer, p *Problem, terms []Term) {
	if len(terms) == 0 {
		if len(p.Vars) > 0 {
			fmt.Fprintf(bw, " 0 %s", p.ColumnName(0))
		}
		return
	}
	for i, t := range terms {
		if i > 0 && i%termsPerLine == 0 {
			bw.WriteString("\n   ")
		}
		sign := "+"
		if t.Coef < 0 {
			sign = "-"
		}
		fmt.Fprintf(bw, " %s %s %s", sign, formatNumber(math.Abs(t.Coef)), p.ColumnName(t.Var))
	}
}
