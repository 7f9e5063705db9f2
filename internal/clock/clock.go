package clock

import (
	"errors"
	"fmt"
	"time"
)

// Step is the fixed simulation interval.
const Step = 15 * time.Minute

// TicksPerDay is the number of steps in a calendar day.
const TicksPerDay = int(24 * time.Hour / Step)

var ErrBadHorizon = errors.New("invalid simulation horizon")

// Tick indexes 15-minute steps from the simulation start.
type Tick int

// Horizon is the inclusive [Start, End] range of simulated ticks.
type Horizon struct {
	Start time.Time
	End   time.Time
}

func NewHorizon(start, end time.Time) (Horizon, error) {
	if start.IsZero() || end.IsZero() {
		return Horizon{}, fmt.Errorf("%w: start and end are required", ErrBadHorizon)
	}
	if end.Before(start) {
		return Horizon{}, fmt.Errorf("%w: end %s before start %s", ErrBadHorizon, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if end.Sub(start)%Step != 0 {
		return Horizon{}, fmt.Errorf("%w: span is not a multiple of %s", ErrBadHorizon, Step)
	}
	return Horizon{Start: start, End: end}, nil
}

// Len is the number of ticks, both ends included.
func (h Horizon) Len() int {
	return int(h.End.Sub(h.Start)/Step) + 1
}

func (h Horizon) Time(t Tick) time.Time {
	return h.Start.Add(time.Duration(t) * Step)
}

func (h Horizon) Contains(t Tick) bool {
	return t >= 0 && int(t) < h.Len()
}

// Clock walks a horizon one tick at a time.
type Clock struct {
	h   Horizon
	now Tick
}

func New(h Horizon) *Clock {
	return &Clock{h: h}
}

func (c *Clock) Horizon() Horizon { return c.h }

func (c *Clock) Now() Tick { return c.now }

func (c *Clock) NowTime() time.Time { return c.h.Time(c.now) }

func (c *Clock) Advance() { c.now++ }

func (c *Clock) Done() bool { return !c.h.Contains(c.now) }
