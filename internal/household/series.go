// Package household supplies the realized load and PV generation of the
// simulated household, tick by tick.
package household

import (
	"errors"
	"fmt"

	"prosumer-backtest/internal/clock"
)

var ErrExhausted = errors.New("household series exhausted")

// Series serves load and PV values from tick-aligned slices.
// A nil load slice means the household draws a constant load.
type Series struct {
	load      []float64
	pv        []float64
	constLoad float64
	pvScale   float64
}

// Option customizes a Series.
type Option func(*Series)

// WithConstantLoad replaces the load series by a fixed value per tick.
func WithConstantLoad(v float64) Option {
	return func(s *Series) {
		s.load = nil
		s.constLoad = v
	}
}

// WithPVScale multiplies every PV value, e.g. rated power / reference power.
func WithPVScale(f float64) Option {
	return func(s *Series) { s.pvScale = f }
}

func NewSeries(load, pv []float64, opts ...Option) (*Series, error) {
	s := &Series{load: load, pv: pv, pvScale: 1}
	for _, o := range opts {
		o(s)
	}
	if s.pvScale < 0 {
		return nil, fmt.Errorf("pv scale must be >= 0, got %v", s.pvScale)
	}
	if len(s.pv) == 0 {
		return nil, errors.New("pv series is empty")
	}
	for i, v := range s.load {
		if v < 0 {
			return nil, fmt.Errorf("negative load %v at tick %d", v, i)
		}
	}
	if s.load == nil && s.constLoad < 0 {
		return nil, fmt.Errorf("negative constant load %v", s.constLoad)
	}
	return s, nil
}

func (s *Series) Load(t clock.Tick) (float64, error) {
	if s.load == nil {
		if t < 0 || int(t) >= len(s.pv) {
			return 0, fmt.Errorf("%w: load at tick %d", ErrExhausted, t)
		}
		return s.constLoad, nil
	}
	if t < 0 || int(t) >= len(s.load) {
		return 0, fmt.Errorf("%w: load has %d ticks, need tick %d", ErrExhausted, len(s.load), t)
	}
	return s.load[t], nil
}

func (s *Series) PV(t clock.Tick) (float64, error) {
	if t < 0 || int(t) >= len(s.pv) {
		return 0, fmt.Errorf("%w: pv has %d ticks, need tick %d", ErrExhausted, len(s.pv), t)
	}
	v := s.pv[t] * s.pvScale
	if v < 0 {
		v = 0
	}
	return v, nil
}

// Len is the number of ticks both series can serve.
func (s *Series) Len() int {
	if s.load != nil && len(s.load) < len(s.pv) {
		return len(s.load)
	}
	return len(s.pv)
}
