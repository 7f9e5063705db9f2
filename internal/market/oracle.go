package market

import (
	"errors"
	"fmt"
	"log"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

var ErrExhausted = errors.New("market price series exhausted")

// Oracle supplies realized prices and accepts or rejects offers.
type Oracle interface {
	Prices(t clock.Tick) (model.PriceVector, error)
	PlaceOffer(c model.Contract) bool
}

// Exchange is an Oracle backed by tick-aligned price series. It rejects
// offers below the minimum lot or outside the market's trading window.
// The time of the last Prices call is the exchange's notion of now.
type Exchange struct {
	horizon  clock.Horizon
	prices   [model.NumMarkets][]float64
	minLot   float64
	rules    *Eligibility
	cursor   clock.Tick
	accepted int
	rejected int
}

// NewExchange expects one series per market, indexed by tick.
func NewExchange(h clock.Horizon, series [model.NumMarkets][]float64, minLot float64, rules *Eligibility) (*Exchange, error) {
	if rules == nil {
		return nil, errors.New("exchange needs eligibility rules")
	}
	if minLot < 0 {
		return nil, fmt.Errorf("minimum lot must be >= 0, got %v", minLot)
	}
	return &Exchange{horizon: h, prices: series, minLot: minLot, rules: rules}, nil
}

func (x *Exchange) Prices(t clock.Tick) (model.PriceVector, error) {
	var out model.PriceVector
	if t < 0 {
		return out, fmt.Errorf("%w: negative tick %d", ErrExhausted, t)
	}
	for _, m := range model.Markets {
		if int(t) >= len(x.prices[m]) {
			return out, fmt.Errorf("%w: %s has %d ticks, need tick %d", ErrExhausted, m, len(x.prices[m]), t)
		}
		out[m] = x.prices[m][t]
	}
	x.cursor = t
	return out, nil
}

func (x *Exchange) PlaceOffer(c model.Contract) bool {
	now := x.horizon.Time(x.cursor)
	switch {
	case !c.Market.Valid():
		log.Printf("[Exchange] reject: unknown market %d", int(c.Market))
	case c.Quantity < x.minLot:
		log.Printf("[Exchange] reject %s offer for %s: quantity %.3f below lot %.3f",
			c.Market, c.Delivery.Format("2006-01-02 15:04"), c.Quantity, x.minLot)
	case !x.rules.Eligible(c.Market, now, c.Delivery):
		log.Printf("[Exchange] reject %s offer for %s: gate closed at %s",
			c.Market, c.Delivery.Format("2006-01-02 15:04"), now.Format("2006-01-02 15:04"))
	default:
		x.accepted++
		return true
	}
	x.rejected++
	return false
}

// Counts returns how many offers were accepted and rejected so far.
func (x *Exchange) Counts() (accepted, rejected int) {
	return x.accepted, x.rejected
}
