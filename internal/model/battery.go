package model

import "errors"

// BatteryParams defines the household storage limits.
// Units: energy (kWh). Charge and discharge per interval are bounded only by
// the state-of-charge limits.
type BatteryParams struct {
	Min     float64
	Max     float64
	Initial float64
}

func (p BatteryParams) Validate() error {
	if p.Min < 0 {
		return errors.New("battery min must be >= 0")
	}
	if p.Max <= 0 {
		return errors.New("battery max must be > 0")
	}
	if p.Min > p.Max {
		return errors.New("battery min must be <= max")
	}
	if p.Initial < p.Min || p.Initial > p.Max {
		return errors.New("battery initial charge must be within [min, max]")
	}
	return nil
}

// Capacity is the usable energy between Min and Max.
func (p BatteryParams) Capacity() float64 {
	return p.Max - p.Min
}
