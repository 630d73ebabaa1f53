package analysis

import "sort"

// RankedStudy pairs a label with the report it produced.
type RankedStudy struct {
	Name   string  `json:"name"`
	Report *Report `json:"report"`
}

// RankBySystemLCOE sorts reports ascending by system LCOE. Reports without a
// computable system LCOE go last, in name order.
func RankBySystemLCOE(byName map[string]*Report) []RankedStudy {
	out := make([]RankedStudy, 0, len(byName))
	for name, r := range byName {
		if r == nil {
			continue
		}
		out = append(out, RankedStudy{Name: name, Report: r})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Report.SystemLCOE, out[j].Report.SystemLCOE
		if a.Computable != b.Computable {
			return a.Computable
		}
		if a.Computable && a.Value != b.Value {
			return a.Value < b.Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}
