// Package forecast keeps a rolling window of per-tick household forecasts
// (load, PV, battery level and planned flows) for the ticks ahead of now.
package forecast

import (
	"errors"
	"fmt"
	"math"

	"prosumer-backtest/internal/clock"
)

// DefaultLength covers two days of 15-minute ticks.
const DefaultLength = 2 * clock.TicksPerDay

var ErrHorizonExceeded = errors.New("lookahead exceeds forecast buffer length")

// Source supplies realized household values per tick.
type Source interface {
	Load(t clock.Tick) (float64, error)
	PV(t clock.Tick) (float64, error)
}

// Slot is the decided or projected state of one future tick.
// Battery is the level at the end of the tick.
type Slot struct {
	Load       float64
	PV         float64
	Battery    float64
	Charge     float64
	Discharge  float64
	GridDemand float64
	GridSupply float64
	// Delivered is the market quantity committed for this tick.
	Delivered float64
}

// Residual is the energy left unassigned in the slot; zero once fully decided.
func (s Slot) Residual() float64 {
	return s.PV - s.Load + s.Discharge - s.Charge + s.GridDemand - s.GridSupply - s.Delivered
}

// Delta is an additive change to a slot's planned flows.
//
// Deltas commute: a slot accumulates the net battery flow (charge - discharge)
// and the net grid flow (demand - supply), and reports only their positive and
// negative parts. Applying the same deltas in any order yields the same slot.
type Delta struct {
	Charge     float64
	Discharge  float64
	GridDemand float64
	GridSupply float64
	Delivered  float64
}

func (d Delta) netBattery() float64 { return d.Charge - d.Discharge }

func (d Delta) netGrid() float64 { return d.GridDemand - d.GridSupply }

type entry struct {
	load      float64
	pv        float64
	level     float64
	battery   float64 // net charge
	grid      float64 // net demand
	delivered float64
}

func (e entry) slot() Slot {
	s := Slot{Load: e.load, PV: e.pv, Battery: e.level, Delivered: e.delivered}
	if e.battery > 0 {
		s.Charge = e.battery
	} else {
		s.Discharge = -e.battery
	}
	if e.grid > 0 {
		s.GridDemand = e.grid
	} else {
		s.GridSupply = -e.grid
	}
	return s
}

// Buffer is a ring of forecast slots. Offset 0 is the current tick; valid
// counts the contiguous slots from now that have been materialized.
// A Buffer belongs to exactly one simulated household and is not safe for
// concurrent use.
type Buffer struct {
	src   Source
	slots []entry
	index int
	valid int
	now   clock.Tick
	carry float64 // battery level at the end of the last slot that left the window
}

func New(length int, src Source, initialBattery float64) (*Buffer, error) {
	if length < 2 {
		return nil, fmt.Errorf("forecast buffer length must be >= 2, got %d", length)
	}
	if src == nil {
		return nil, errors.New("forecast source is nil")
	}
	return &Buffer{
		src:   src,
		slots: make([]entry, length),
		carry: initialBattery,
	}, nil
}

func (b *Buffer) Len() int { return len(b.slots) }

// Valid is the number of materialized slots starting at now.
func (b *Buffer) Valid() int { return b.valid }

func (b *Buffer) Now() clock.Tick { return b.now }

func (b *Buffer) pos(ahead int) int { return (b.index + ahead) % len(b.slots) }

// Get returns the slot `ahead` ticks from now, materializing every slot up to
// and including it from the source if needed.
func (b *Buffer) Get(ahead int) (Slot, error) {
	if err := b.materialize(ahead); err != nil {
		return Slot{}, err
	}
	return b.slots[b.pos(ahead)].slot(), nil
}

func (b *Buffer) materialize(ahead int) error {
	if ahead < 0 {
		return fmt.Errorf("negative lookahead %d", ahead)
	}
	if ahead >= len(b.slots) {
		return fmt.Errorf("%w: offset %d, length %d", ErrHorizonExceeded, ahead, len(b.slots))
	}
	for b.valid <= ahead {
		t := b.now + clock.Tick(b.valid)
		load, err := b.src.Load(t)
		if err != nil {
			return fmt.Errorf("load at tick %d: %w", t, err)
		}
		pv, err := b.src.PV(t)
		if err != nil {
			return fmt.Errorf("pv at tick %d: %w", t, err)
		}
		prev := b.carry
		if b.valid > 0 {
			prev = b.slots[b.pos(b.valid-1)].level
		}
		b.slots[b.pos(b.valid)] = entry{load: load, pv: pv, level: prev}
		b.valid++
	}
	return nil
}

// Update adds d into the slot `ahead` ticks from now and shifts the battery
// level of that slot and every later materialized slot by the net charge.
// Slots past the materialized window are left alone; they copy the level
// forward when they are materialized.
func (b *Buffer) Update(ahead int, d Delta) error {
	if ahead < 0 || ahead >= b.valid {
		return fmt.Errorf("update offset %d outside materialized window [0,%d)", ahead, b.valid)
	}
	e := &b.slots[b.pos(ahead)]
	e.battery += d.netBattery()
	e.grid += d.netGrid()
	e.delivered += d.Delivered

	shift := d.netBattery()
	if shift != 0 {
		for i := ahead; i < b.valid; i++ {
			b.slots[b.pos(i)].level += shift
		}
	}
	return nil
}

// Advance moves now forward by one tick. The current slot must be fully
// decided before calling it.
func (b *Buffer) Advance() {
	if b.valid > 0 {
		b.carry = b.slots[b.index].level
		b.valid--
	}
	b.index = (b.index + 1) % len(b.slots)
	b.now++
}

// LevelRange returns the lowest and highest projected battery levels over the
// materialized slots from `ahead` on. Past the materialized window it returns
// the level a newly materialized slot would start from.
func (b *Buffer) LevelRange(ahead int) (lo, hi float64) {
	if ahead >= b.valid {
		l := b.carry
		if b.valid > 0 {
			l = b.slots[b.pos(b.valid-1)].level
		}
		return l, l
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := ahead; i < b.valid; i++ {
		l := b.slots[b.pos(i)].level
		lo = math.Min(lo, l)
		hi = math.Max(hi, l)
	}
	return lo, hi
}

// MinReserve is the smallest amount of stored energy above floor that stays
// untouched over the materialized window from `ahead` on, once the not yet
// allocated residual of each later slot is drawn from (or added to) the
// battery. The result is never negative.
func (b *Buffer) MinReserve(ahead int, floor float64) float64 {
	if ahead >= b.valid {
		return 0
	}
	agg := 0.0
	minimum := math.Inf(1)
	for i := ahead; i < b.valid; i++ {
		e := b.slots[b.pos(i)]
		if i > ahead {
			agg += e.slot().Residual()
		}
		minimum = math.Min(minimum, e.level-floor+agg)
	}
	return math.Max(0, minimum)
}
