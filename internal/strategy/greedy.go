package strategy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/forecast"
	"prosumer-backtest/internal/market"
	"prosumer-backtest/internal/model"
)

// RejectPolicy controls what happens to an offer the oracle refuses.
type RejectPolicy string

const (
	// RejectKeep books the refused contract anyway and plans its delivery.
	RejectKeep RejectPolicy = "keep"
	// RejectDrop discards the refused contract and stores the surplus instead.
	RejectDrop RejectPolicy = "drop"
)

func (p RejectPolicy) Valid() bool { return p == RejectKeep || p == RejectDrop }

type GreedyParams struct {
	Battery         model.BatteryParams
	MinOffer        float64
	GridResidential float64
	OnReject        RejectPolicy
}

// Greedy plans each tick on its own: cover deficits from the battery then the
// grid, sell surpluses on the best open market once that market is about to
// close for the tick, and otherwise keep the energy in the household.
type Greedy struct {
	p     GreedyParams
	rules *market.Eligibility
}

func NewGreedy(p GreedyParams, rules *market.Eligibility) (*Greedy, error) {
	if err := p.Battery.Validate(); err != nil {
		return nil, err
	}
	if rules == nil {
		return nil, errors.New("greedy planner needs eligibility rules")
	}
	if p.MinOffer < 0 {
		return nil, fmt.Errorf("minimum offer quantity must be >= 0, got %v", p.MinOffer)
	}
	if p.OnReject == "" {
		p.OnReject = RejectKeep
	}
	if !p.OnReject.Valid() {
		return nil, fmt.Errorf("unknown reject policy %q", p.OnReject)
	}
	return &Greedy{p: p, rules: rules}, nil
}

func (g *Greedy) Name() string { return "greedy" }

// Plan decides offset `ahead`. Offset 0 never trades since no market accepts
// offers for the running tick.
func (g *Greedy) Plan(ctx Context, ahead int) (Decision, error) {
	delivery := ctx.Now.Add(time.Duration(ahead) * clock.Step)
	s, err := ctx.Buffer.Get(ahead)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Ahead: ahead, Delivery: delivery}

	surplus := s.PV - s.Load + s.Discharge - s.Charge + s.GridDemand - s.GridSupply
	surplus -= ctx.Book.QuantityAt(delivery)
	d.Surplus = surplus

	lo, hi := ctx.Buffer.LevelRange(ahead)
	avail := math.Max(0, lo-g.p.Battery.Min)
	headroom := math.Max(0, g.p.Battery.Max-hi)

	if surplus < 0 {
		d.Branch = BranchDeficit
		d.Delta = cover(-surplus, avail)
		return d, ctx.Buffer.Update(ahead, d.Delta)
	}

	reserve := ctx.Buffer.MinReserve(ahead, g.p.Battery.Min)
	if ahead < 1 || surplus+avail < g.p.MinOffer || surplus+reserve < g.p.MinOffer {
		d.Branch = BranchStore
		d.Delta = store(surplus, headroom)
		return d, ctx.Buffer.Update(ahead, d.Delta)
	}

	prices := ctx.Estimator.Forecast(ctx.Now, ahead)
	best := g.rules.BestEligibleMarket(ctx.Now, delivery, prices)
	if ahead > 1 && !g.rules.IsClosingNow(best, ctx.Now, delivery) {
		d.Branch = BranchDeferred
		return d, nil
	}
	price := prices[best]

	if price < g.p.GridResidential {
		d.Branch = BranchSelfConsume
		d.Delta = store(surplus, headroom)
		return d, ctx.Buffer.Update(ahead, d.Delta)
	}

	discharge := math.Min(avail, reserve)
	qty := surplus + discharge
	if qty <= 0 {
		d.Branch = BranchStore
		d.Delta = store(surplus, headroom)
		return d, ctx.Buffer.Update(ahead, d.Delta)
	}
	c := model.Contract{Market: best, Delivery: delivery, Quantity: qty, Price: price}
	d.Branch = BranchOffer
	d.Offer = &c
	d.Accepted = ctx.Oracle.PlaceOffer(c)

	if !d.Accepted && g.p.OnReject == RejectDrop {
		d.Delta = store(surplus, headroom)
		return d, ctx.Buffer.Update(ahead, d.Delta)
	}
	ctx.Book.Add(c)
	d.Delta = forecast.Delta{Discharge: discharge, Delivered: qty}
	return d, ctx.Buffer.Update(ahead, d.Delta)
}

// cover meets a deficit from the battery first and the grid for the rest.
func cover(deficit, avail float64) forecast.Delta {
	discharge := math.Min(deficit, avail)
	return forecast.Delta{Discharge: discharge, GridDemand: deficit - discharge}
}

// store puts a surplus into the battery and feeds what does not fit to the grid.
func store(surplus, headroom float64) forecast.Delta {
	charge := math.Min(surplus, headroom)
	return forecast.Delta{Charge: charge, GridSupply: surplus - charge}
}
