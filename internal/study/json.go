package study

import (
	"encoding/json"
	"os"
)

// WriteReportJSON stores the outcome (without the model and ledger) as indented JSON.
func WriteReportJSON(path string, o *Outcome) error {
	raw, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}

func LoadReportJSON(path string) (*Outcome, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var o Outcome
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
