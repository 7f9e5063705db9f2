package model

// Action is a human-friendly battery operating mode for a tick.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// ActionFromFlows derives the mode from a tick's battery flows.
func ActionFromFlows(charge, discharge float64) Action {
	switch {
	case charge > discharge:
		return ActionCharging
	case discharge > charge:
		return ActionDischarging
	default:
		return ActionIdle
	}
}
