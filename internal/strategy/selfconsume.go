package strategy

import (
	"math"
	"time"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

// SelfConsumption never trades: deficits come from the battery then the grid,
// surpluses go to the battery then the grid. It is the baseline the greedy
// planner is compared against.
type SelfConsumption struct {
	battery model.BatteryParams
}

func NewSelfConsumption(battery model.BatteryParams) (*SelfConsumption, error) {
	if err := battery.Validate(); err != nil {
		return nil, err
	}
	return &SelfConsumption{battery: battery}, nil
}

func (s *SelfConsumption) Name() string { return "self_consumption" }

func (s *SelfConsumption) Plan(ctx Context, ahead int) (Decision, error) {
	slot, err := ctx.Buffer.Get(ahead)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{
		Ahead:    ahead,
		Delivery: ctx.Now.Add(time.Duration(ahead) * clock.Step),
		Surplus:  slot.Residual(),
	}
	lo, hi := ctx.Buffer.LevelRange(ahead)
	if d.Surplus < 0 {
		d.Branch = BranchDeficit
		d.Delta = cover(-d.Surplus, math.Max(0, lo-s.battery.Min))
	} else {
		d.Branch = BranchStore
		d.Delta = store(d.Surplus, math.Max(0, s.battery.Max-hi))
	}
	return d, ctx.Buffer.Update(ahead, d.Delta)
}
