package lp

// Status is the terminal state of a solve.
type Status int

const (
	NotSolved Status = iota
	Optimal
	Infeasible
	Unbounded
	Undefined
)

func (s Status) String() string {
	switch s {
	case NotSolved:
		return "Not Solved"
	case Optimal:
		return "Optimal"
	case Infeasible:
		return "Infeasible"
	case Unbounded:
		return "Unbounded"
	default:
		return "Undefined"
	}
}

// MarshalText keeps JSON reports readable.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseStatus is the inverse of String. Unknown text is Undefined.
func ParseStatus(text string) Status {
	for _, s := range []Status{NotSolved, Optimal, Infeasible, Unbounded} {
		if s.String() == text {
			return s
		}
	}
	return Undefined
}

func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}

// Result is what a solver returns. Values and Objective are meaningful only when
// Status is Optimal; Detail carries the backend's own wording.
type Result struct {
	Status    Status
	Objective float64
	Values    []float64
	Solver    string
	Detail    string
}

func (r *Result) Optimal() bool { return r != nil && r.Status == Optimal }
