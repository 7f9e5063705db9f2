package backtest

import (
	"time"

	"prosumer-backtest/internal/model"
)

// TickRow is one row of per-tick output. Money columns are cumulative.
type TickRow struct {
	Index int
	Time  time.Time

	Gains      model.PriceVector
	GridFeedIn float64
	GridCost   float64
	Total      float64

	Battery    float64
	PV         float64
	Load       float64
	Charge     float64
	Discharge  float64
	GridDemand float64
	GridSupply float64
	Delivered  float64

	Action  model.Action
	Balance float64
}

// ActionKind tells placed, rejected and settled contracts apart in the action log.
type ActionKind string

const (
	ActionPlaced   ActionKind = "placed"
	ActionRejected ActionKind = "rejected"
	ActionSettled  ActionKind = "settled"
)

// ActionRow is one contract event. Time is when it happened; Delivery is the
// contract's delivery tick.
type ActionRow struct {
	Time     time.Time
	Kind     ActionKind
	Market   model.MarketID
	Delivery time.Time
	Price    float64
	Quantity float64
}

type ViolationRow struct {
	Time time.Time
	Text string
}

type Result struct {
	Planner string

	Ticks      []TickRow
	Actions    []ActionRow
	Violations []ViolationRow

	Gains      model.PriceVector
	GridFeedIn float64
	GridCost   float64
	Total      float64

	// Delivered is the settled quantity per market.
	Delivered model.PriceVector

	Offers        int
	Rejections    int
	FinalBattery  float64
	OpenContracts int
}

// ViolationCount is the number of logged violations, rejected offers included.
func (r *Result) ViolationCount() int { return len(r.Violations) }

// SettledTotal sums the gains of all settled action rows.
func (r *Result) SettledTotal() float64 {
	sum := 0.0
	for _, a := range r.Actions {
		if a.Kind == ActionSettled {
			sum += a.Price * a.Quantity
		}
	}
	return sum
}
