package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/contract"
	"prosumer-backtest/internal/forecast"
	"prosumer-backtest/internal/invariant"
	"prosumer-backtest/internal/market"
	"prosumer-backtest/internal/model"
	"prosumer-backtest/internal/strategy"
)

// BlockLen is the number of offsets planned when a daily gate closes.
const BlockLen = clock.TicksPerDay

var ErrHorizonTooShort = errors.New("forecast buffer shorter than the longest market lookahead")

type Params struct {
	Horizon         clock.Horizon
	Battery         model.BatteryParams
	GridResidential float64
	GridFeedIn      float64
	BufferLength    int
	Settlement      contract.PriceBasis

	PriceSmoothing float64
	PriceProfile   market.Profile
	Volatility     model.PriceVector
}

type Engine struct {
	p     Params
	rules *market.Eligibility
}

// New validates the run parameters. A buffer that cannot hold the longest
// planning block is a configuration error.
func New(p Params, rules *market.Eligibility) (*Engine, error) {
	if rules == nil {
		return nil, errors.New("eligibility rules are nil")
	}
	if err := p.Battery.Validate(); err != nil {
		return nil, err
	}
	if p.Horizon.Start.IsZero() || p.Horizon.End.Before(p.Horizon.Start) {
		return nil, clock.ErrBadHorizon
	}
	if p.BufferLength == 0 {
		p.BufferLength = forecast.DefaultLength
	}
	if p.Settlement == "" {
		p.Settlement = contract.SettleRealized
	}
	if !p.Settlement.Valid() {
		return nil, fmt.Errorf("unknown settlement price %q", p.Settlement)
	}
	if need := MaxLookahead(rules) + 1; p.BufferLength < need {
		return nil, fmt.Errorf("%w: length %d, need %d", ErrHorizonTooShort, p.BufferLength, need)
	}
	if _, err := market.NewEstimator(p.PriceSmoothing, p.Volatility, p.PriceProfile); err != nil {
		return nil, err
	}
	return &Engine{p: p, rules: rules}, nil
}

// MaxLookahead is the furthest offset any planning block reaches.
func MaxLookahead(rules *market.Eligibility) int {
	furthest := 1
	for _, m := range model.Markets {
		if rules.Rule(m).Closure == nil {
			continue
		}
		if end := rules.BlockStart(m) + BlockLen - 1; end > furthest {
			furthest = end
		}
	}
	return furthest
}

// run holds the state of one simulated household.
type run struct {
	e       *Engine
	clk     *clock.Clock
	buf     *forecast.Buffer
	book    *contract.Book
	ledger  *contract.Ledger
	est     *market.Estimator
	oracle  market.Oracle
	planner strategy.Planner
	res     *Result

	cost   decimal.Decimal
	feedIn decimal.Decimal
}

// Run simulates the horizon tick by tick. Offer rejections and invariant
// violations are recorded in the result; data gaps and cancellation abort.
func (e *Engine) Run(ctx context.Context, src forecast.Source, oracle market.Oracle, planner strategy.Planner) (*Result, error) {
	if src == nil {
		return nil, errors.New("household source is nil")
	}
	if oracle == nil {
		return nil, errors.New("market oracle is nil")
	}
	if planner == nil {
		return nil, errors.New("planner is nil")
	}
	buf, err := forecast.New(e.p.BufferLength, src, e.p.Battery.Initial)
	if err != nil {
		return nil, err
	}
	est, err := market.NewEstimator(e.p.PriceSmoothing, e.p.Volatility, e.p.PriceProfile)
	if err != nil {
		return nil, err
	}
	r := &run{
		e:       e,
		clk:     clock.New(e.p.Horizon),
		buf:     buf,
		book:    contract.NewBook(),
		ledger:  contract.NewLedger(e.p.Settlement),
		est:     est,
		oracle:  oracle,
		planner: planner,
		res: &Result{
			Planner: planner.Name(),
			Ticks:   make([]TickRow, 0, e.p.Horizon.Len()),
		},
		cost:   decimal.Zero,
		feedIn: decimal.Zero,
	}

	log.Printf("[Engine] %s run %s .. %s (%d ticks)", planner.Name(),
		e.p.Horizon.Start.Format(time.RFC3339), e.p.Horizon.End.Format(time.RFC3339), e.p.Horizon.Len())

	// The running tick is decided before the loop; no market takes it.
	if err := r.plan(0); err != nil {
		return nil, err
	}
	for !r.clk.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.step(); err != nil {
			return nil, fmt.Errorf("tick %d (%s): %w", r.clk.Now(), r.clk.NowTime().Format(time.RFC3339), err)
		}
	}

	r.finish()
	log.Printf("[Engine] %s done: total %.4f, offers %d, rejected %d, violations %d",
		planner.Name(), r.res.Total, r.res.Offers, r.res.Rejections, r.res.ViolationCount())
	if x, ok := oracle.(interface{ Counts() (int, int) }); ok {
		accepted, rejected := x.Counts()
		log.Printf("[Engine] exchange accepted %d, rejected %d", accepted, rejected)
	}
	return r.res, nil
}

func (r *run) step() error {
	now := r.clk.NowTime()
	prices, err := r.oracle.Prices(r.clk.Now())
	if err != nil {
		return err
	}

	settled, delivered := r.ledger.Settle(r.book, now, prices)
	for _, s := range settled {
		r.res.Actions = append(r.res.Actions, ActionRow{
			Time:     now,
			Kind:     ActionSettled,
			Market:   s.Contract.Market,
			Delivery: s.Contract.Delivery,
			Price:    s.Price,
			Quantity: s.Contract.Quantity,
		})
	}

	r.est.Observe(now, prices)

	if err := r.plan(1); err != nil {
		return err
	}
	for _, m := range []model.MarketID{model.IntradayAuction, model.DayAhead} {
		if !r.e.rules.ClosesWithinTick(m, now) {
			continue
		}
		start := r.e.rules.BlockStart(m)
		for ahead := start; ahead < start+BlockLen; ahead++ {
			if err := r.plan(ahead); err != nil {
				return err
			}
		}
	}

	slot, err := r.buf.Get(0)
	if err != nil {
		return err
	}
	r.validate(now, slot, delivered)
	r.record(now, slot, delivered)

	r.buf.Advance()
	r.clk.Advance()
	return nil
}

// plan decides one offset. Offsets delivering after the horizon end are
// skipped so every contract settles within the run.
func (r *run) plan(ahead int) error {
	t := r.clk.Now() + clock.Tick(ahead)
	if !r.e.p.Horizon.Contains(t) {
		return nil
	}
	d, err := r.planner.Plan(strategy.Context{
		Now:       r.clk.NowTime(),
		Buffer:    r.buf,
		Book:      r.book,
		Estimator: r.est,
		Oracle:    r.oracle,
	}, ahead)
	if err != nil {
		return fmt.Errorf("plan offset %d: %w", ahead, err)
	}
	if d.Offer == nil {
		return nil
	}

	now := r.clk.NowTime()
	r.res.Offers++
	kind := ActionPlaced
	if d.Rejected() {
		kind = ActionRejected
		r.res.Rejections++
		text := fmt.Sprintf("rejected offer: market %s, delivery %s, quantity %.6f, price %.6f",
			d.Offer.Market, d.Offer.Delivery.Format(time.RFC3339), d.Offer.Quantity, d.Offer.Price)
		r.res.Violations = append(r.res.Violations, ViolationRow{Time: now, Text: text})
		log.Printf("[Engine] %s: %s", now.Format(time.RFC3339), text)
	}
	r.res.Actions = append(r.res.Actions, ActionRow{
		Time:     now,
		Kind:     kind,
		Market:   d.Offer.Market,
		Delivery: d.Offer.Delivery,
		Price:    d.Offer.Price,
		Quantity: d.Offer.Quantity,
	})
	return nil
}

func (r *run) validate(now time.Time, slot forecast.Slot, delivered float64) {
	bounds := invariant.Bounds{BatteryMin: r.e.p.Battery.Min, BatteryMax: r.e.p.Battery.Max}
	for _, v := range invariant.Check(slot, delivered, bounds) {
		text := fmt.Sprintf("tick %d: %s", r.clk.Now(), v)
		r.res.Violations = append(r.res.Violations, ViolationRow{Time: now, Text: text})
		log.Printf("[Engine] %s: invariant violated: %s", now.Format(time.RFC3339), text)
	}
}

func (r *run) record(now time.Time, slot forecast.Slot, delivered float64) {
	r.cost = r.cost.Add(decimal.NewFromFloat(slot.GridDemand).Mul(decimal.NewFromFloat(r.e.p.GridResidential)))
	r.feedIn = r.feedIn.Add(decimal.NewFromFloat(slot.GridSupply).Mul(decimal.NewFromFloat(r.e.p.GridFeedIn)))
	total := r.ledger.TotalGain().Add(r.feedIn).Sub(r.cost)

	r.res.Ticks = append(r.res.Ticks, TickRow{
		Index:      int(r.clk.Now()),
		Time:       now,
		Gains:      r.ledger.Gains(),
		GridFeedIn: r.feedIn.InexactFloat64(),
		GridCost:   r.cost.InexactFloat64(),
		Total:      total.InexactFloat64(),
		Battery:    slot.Battery,
		PV:         slot.PV,
		Load:       slot.Load,
		Charge:     slot.Charge,
		Discharge:  slot.Discharge,
		GridDemand: slot.GridDemand,
		GridSupply: slot.GridSupply,
		Delivered:  delivered,
		Action:     model.ActionFromFlows(slot.Charge, slot.Discharge),
		Balance:    invariant.Balance(slot, delivered),
	})
}

func (r *run) finish() {
	r.res.Gains = r.ledger.Gains()
	r.res.GridFeedIn = r.feedIn.InexactFloat64()
	r.res.GridCost = r.cost.InexactFloat64()
	r.res.Total = r.ledger.TotalGain().Add(r.feedIn).Sub(r.cost).InexactFloat64()
	r.res.OpenContracts = r.book.Len()
	for _, m := range model.Markets {
		r.res.Delivered[m] = r.ledger.Delivered(m)
	}
	for _, c := range r.book.Open() {
		log.Printf("[Engine] contract left open: market %s, delivery %s, quantity %.6f",
			c.Market, c.Delivery.Format(time.RFC3339), c.Quantity)
	}
	if n := len(r.res.Ticks); n > 0 {
		r.res.FinalBattery = r.res.Ticks[n-1].Battery
	} else {
		r.res.FinalBattery = r.e.p.Battery.Initial
	}
}
