package contract

import (
	"time"

	"github.com/shopspring/decimal"

	"prosumer-backtest/internal/model"
)

// PriceBasis selects which price a settled contract is credited at.
type PriceBasis string

const (
	// SettleRealized credits the realized market price at delivery.
	SettleRealized PriceBasis = "realized"
	// SettleOffer credits the contract's own offer price.
	SettleOffer PriceBasis = "offer"
)

func (p PriceBasis) Valid() bool {
	return p == SettleRealized || p == SettleOffer
}

// Settlement is one delivered contract and the money it earned.
type Settlement struct {
	Contract model.Contract
	Time     time.Time
	Price    float64
	Gain     float64
}

// Ledger accumulates settled gains per market. Money is summed as decimals so
// the running totals do not drift over long horizons.
type Ledger struct {
	basis     PriceBasis
	gains     [model.NumMarkets]decimal.Decimal
	delivered [model.NumMarkets]decimal.Decimal
}

func NewLedger(basis PriceBasis) *Ledger {
	if !basis.Valid() {
		basis = SettleRealized
	}
	return &Ledger{basis: basis}
}

// Settle removes every due contract from the book, credits it and returns the
// settlements together with the total quantity delivered now.
func (l *Ledger) Settle(book *Book, now time.Time, realized model.PriceVector) ([]Settlement, float64) {
	due := book.TakeDue(now)
	if len(due) == 0 {
		return nil, 0
	}
	out := make([]Settlement, 0, len(due))
	delivered := 0.0
	for _, c := range due {
		price := c.Price
		if l.basis == SettleRealized {
			price = realized[c.Market]
		}
		gain := decimal.NewFromFloat(c.Quantity).Mul(decimal.NewFromFloat(price))
		l.gains[c.Market] = l.gains[c.Market].Add(gain)
		l.delivered[c.Market] = l.delivered[c.Market].Add(decimal.NewFromFloat(c.Quantity))
		delivered += c.Quantity
		out = append(out, Settlement{
			Contract: c,
			Time:     now,
			Price:    price,
			Gain:     gain.InexactFloat64(),
		})
	}
	return out, delivered
}

// Gain is the cumulative settled gain on market m.
func (l *Ledger) Gain(m model.MarketID) float64 {
	return l.gains[m].InexactFloat64()
}

// Gains returns the cumulative settled gains of all markets.
func (l *Ledger) Gains() model.PriceVector {
	var out model.PriceVector
	for _, m := range model.Markets {
		out[m] = l.gains[m].InexactFloat64()
	}
	return out
}

// TotalGain sums the settled gains over all markets.
func (l *Ledger) TotalGain() decimal.Decimal {
	total := decimal.Zero
	for _, g := range l.gains {
		total = total.Add(g)
	}
	return total
}

// Delivered is the cumulative settled quantity on market m.
func (l *Ledger) Delivered(m model.MarketID) float64 {
	return l.delivered[m].InexactFloat64()
}
