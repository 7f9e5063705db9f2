package market

import (
	"fmt"
	"time"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

// Rule is the trading window of one market family. A market with a Closure
// accepts next-day offers until that time of day; MinLead is the minimum
// number of ticks between submission and delivery.
type Rule struct {
	Market  model.MarketID
	Closure *GateClosure
	MinLead int
}

// Eligibility decides where and when an offer for a delivery tick may be placed.
type Eligibility struct {
	rules [model.NumMarkets]Rule
	step  time.Duration
}

// DefaultRules mirror the German spot markets: day-ahead closes at 12:00,
// the intraday auction at 16:00, and continuous intraday trades up to one
// tick before delivery.
func DefaultRules() [model.NumMarkets]Rule {
	da, _ := ParseGateClosure("12:00")
	ia, _ := ParseGateClosure("16:00")
	return [model.NumMarkets]Rule{
		model.DayAhead:           {Market: model.DayAhead, Closure: da},
		model.IntradayAuction:    {Market: model.IntradayAuction, Closure: ia},
		model.IntradayContinuous: {Market: model.IntradayContinuous, MinLead: 1},
	}
}

func NewEligibility(rules [model.NumMarkets]Rule) (*Eligibility, error) {
	for i, r := range rules {
		if r.Market != model.MarketID(i) {
			return nil, fmt.Errorf("rule %d is for market %s", i, r.Market)
		}
		if r.MinLead < 0 {
			return nil, fmt.Errorf("market %s: min lead must be >= 0", r.Market)
		}
	}
	if rules[model.IntradayContinuous].Closure != nil {
		return nil, fmt.Errorf("market %s must not have a daily closure", model.IntradayContinuous)
	}
	return &Eligibility{rules: rules, step: clock.Step}, nil
}

func (e *Eligibility) Rule(m model.MarketID) Rule { return e.rules[m] }

// Eligible reports whether an offer for delivery may be placed on m at now.
func (e *Eligibility) Eligible(m model.MarketID, now, delivery time.Time) bool {
	r := e.rules[m]
	if delivery.Sub(now) < time.Duration(r.MinLead)*e.step {
		return false
	}
	if r.Closure != nil {
		if !dateBefore(now, delivery) || !r.Closure.OpenToday(now) {
			return false
		}
	}
	return true
}

// IsClosingNow reports whether now is the last tick at which an offer for
// delivery may be placed on m: it is eligible now but no longer at now+step.
func (e *Eligibility) IsClosingNow(m model.MarketID, now, delivery time.Time) bool {
	if !e.Eligible(m, now, delivery) {
		return false
	}
	return !e.Eligible(m, now.Add(e.step), delivery)
}

// ClosesWithinTick reports whether m's daily gate closes in [now, now+step).
func (e *Eligibility) ClosesWithinTick(m model.MarketID, now time.Time) bool {
	r := e.rules[m]
	if r.Closure == nil {
		return false
	}
	return r.Closure.Next(now).Before(now.Add(e.step))
}

// BlockStart is the first lookahead offset planned when m's daily gate
// closes: the first tick after the following midnight.
func (e *Eligibility) BlockStart(m model.MarketID) int {
	r := e.rules[m]
	if r.Closure == nil {
		return 0
	}
	stepMin := int(e.step / time.Minute)
	closingTick := r.Closure.Minutes() / stepMin * stepMin
	return (24*60-closingTick)/stepMin + 1
}

// BestEligibleMarket picks the market with the highest forecast price among
// those still open for delivery. The continuous market is the default and
// wins ties.
func (e *Eligibility) BestEligibleMarket(now, delivery time.Time, forecasts model.PriceVector) model.MarketID {
	best := model.IntradayContinuous
	for _, m := range []model.MarketID{model.IntradayAuction, model.DayAhead} {
		if !e.Eligible(m, now, delivery) {
			continue
		}
		if forecasts[m] > forecasts[best] {
			best = m
		}
	}
	return best
}
