package model

// Action is a human-friendly operating mode for a timestep.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// actionThresholdMWh ignores solver noise around zero.
const actionThresholdMWh = 1e-9

// ActionFromFlows classifies an interval by its net battery flow.
func ActionFromFlows(chargeMWh, dischargeMWh float64) Action {
	net := dischargeMWh - chargeMWh
	switch {
	case net < -actionThresholdMWh:
		return ActionCharging
	case net > actionThresholdMWh:
		return ActionDischarging
	default:
		return ActionIdle
	}
}
