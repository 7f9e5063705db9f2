package strategy

import (
	"time"

	"prosumer-backtest/internal/contract"
	"prosumer-backtest/internal/forecast"
	"prosumer-backtest/internal/market"
	"prosumer-backtest/internal/model"
)

// Context is the household state a planner reads and mutates for one call.
type Context struct {
	Now       time.Time
	Buffer    *forecast.Buffer
	Book      *contract.Book
	Estimator *market.Estimator
	Oracle    market.Oracle
}

// Planner decides the flows of the tick `ahead` steps after ctx.Now and
// applies them to ctx.Buffer (and ctx.Book when it trades).
type Planner interface {
	Name() string
	Plan(ctx Context, ahead int) (Decision, error)
}

// Branch names the path a plan call took.
type Branch string

const (
	BranchDeficit     Branch = "deficit"
	BranchStore       Branch = "store"
	BranchSelfConsume Branch = "self_consume"
	BranchOffer       Branch = "offer"
	BranchDeferred    Branch = "deferred"
)

// Decision is the outcome of one plan call.
type Decision struct {
	Ahead    int
	Delivery time.Time
	Branch   Branch
	Surplus  float64
	Delta    forecast.Delta
	// Offer is set when an offer was submitted; Accepted is the oracle's answer.
	Offer    *model.Contract
	Accepted bool
}

// Rejected reports whether the decision submitted an offer the oracle refused.
func (d Decision) Rejected() bool {
	return d.Offer != nil && !d.Accepted
}
