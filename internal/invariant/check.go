// Package invariant checks a decided tick against the physical and
// contractual rules every plan must respect.
package invariant

import (
	"fmt"
	"math"

	"prosumer-backtest/internal/forecast"
)

// Tolerance is the absolute slack allowed in every comparison.
const Tolerance = 1e-6

// Bounds are the battery state-of-charge limits.
type Bounds struct {
	BatteryMin float64
	BatteryMax float64
}

// Balance is pv + discharge - charge + demand - supply - delivered - load.
// It is zero for a fully decided tick.
func Balance(s forecast.Slot, delivered float64) float64 {
	return s.PV + s.Discharge - s.Charge + s.GridDemand - s.GridSupply - delivered - s.Load
}

// Check returns one description per violated rule; nil means the tick is
// consistent. delivered is the quantity settled for the tick.
func Check(s forecast.Slot, delivered float64, b Bounds) []string {
	var out []string
	flows := []struct {
		name string
		v    float64
	}{
		{"charge", s.Charge},
		{"discharge", s.Discharge},
		{"grid demand", s.GridDemand},
		{"grid supply", s.GridSupply},
	}
	for _, f := range flows {
		if f.v < -Tolerance {
			out = append(out, fmt.Sprintf("negative %s %.6f", f.name, f.v))
		}
	}
	if s.Charge > Tolerance && s.Discharge > Tolerance {
		out = append(out, fmt.Sprintf("charge %.6f and discharge %.6f in the same tick", s.Charge, s.Discharge))
	}
	if s.GridDemand > Tolerance && s.GridSupply > Tolerance {
		out = append(out, fmt.Sprintf("grid demand %.6f and supply %.6f in the same tick", s.GridDemand, s.GridSupply))
	}
	if s.Battery < b.BatteryMin-Tolerance {
		out = append(out, fmt.Sprintf("battery %.6f below minimum %.6f", s.Battery, b.BatteryMin))
	}
	if s.Battery > b.BatteryMax+Tolerance {
		out = append(out, fmt.Sprintf("battery %.6f above maximum %.6f", s.Battery, b.BatteryMax))
	}
	if bal := Balance(s, delivered); math.Abs(bal) > Tolerance {
		out = append(out, fmt.Sprintf("energy balance off by %.6f", bal))
	}
	return out
}
