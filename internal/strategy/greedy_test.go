package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/contract"
	"prosumer-backtest/internal/forecast"
	"prosumer-backtest/internal/household"
	"prosumer-backtest/internal/market"
	"prosumer-backtest/internal/model"
)

type fakeOracle struct {
	accept bool
	offers []model.Contract
}

func (f *fakeOracle) Prices(clock.Tick) (model.PriceVector, error) { return model.PriceVector{}, nil }

func (f *fakeOracle) PlaceOffer(c model.Contract) bool {
	f.offers = append(f.offers, c)
	return f.accept
}

type fixture struct {
	ctx    Context
	oracle *fakeOracle
}

// newFixture builds a household whose tick i has load[i] and pv[i], with
// flat price estimates and no volatility.
func newFixture(t *testing.T, now time.Time, load, pv []float64, initial float64, prices model.PriceVector) *fixture {
	t.Helper()
	src, err := household.NewSeries(load, pv)
	require.NoError(t, err)
	buf, err := forecast.New(forecast.DefaultLength, src, initial)
	require.NoError(t, err)
	est, err := market.NewEstimator(0, model.PriceVector{}, market.ProfileFlat)
	require.NoError(t, err)
	est.Observe(now, prices)
	o := &fakeOracle{accept: true}
	return &fixture{
		ctx:    Context{Now: now, Buffer: buf, Book: contract.NewBook(), Estimator: est, Oracle: o},
		oracle: o,
	}
}

func newGreedy(t *testing.T, initial, minOffer float64, onReject RejectPolicy) *Greedy {
	t.Helper()
	rules, err := market.NewEligibility(market.DefaultRules())
	require.NoError(t, err)
	g, err := NewGreedy(GreedyParams{
		Battery:         model.BatteryParams{Min: 0, Max: 1000, Initial: initial},
		MinOffer:        minOffer,
		GridResidential: 0.3,
		OnReject:        onReject,
	}, rules)
	require.NoError(t, err)
	return g
}

var evening = time.Date(2024, time.June, 1, 18, 0, 0, 0, time.UTC)

func TestGreedy_InsufficientLotCharges(t *testing.T) {
	f := newFixture(t, evening, []float64{0, 10}, []float64{0, 50}, 0, model.PriceVector{1, 1, 1})
	g := newGreedy(t, 0, 100, RejectKeep)

	d, err := g.Plan(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, BranchStore, d.Branch)
	assert.Nil(t, d.Offer)
	assert.Empty(t, f.oracle.offers)

	s, err := f.ctx.Buffer.Get(1)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, s.Charge, 1e-9)
	assert.Zero(t, s.GridDemand)
	assert.Zero(t, s.GridSupply)
	assert.InDelta(t, 40.0, s.Battery, 1e-9)
}

func TestGreedy_OfferDischargeBoundedByReserve(t *testing.T) {
	load := []float64{0, 10, 300, 300}
	pv := []float64{0, 160, 0, 0}
	f := newFixture(t, evening, load, pv, 900, model.PriceVector{0.4, 0.4, 0.4})
	g := newGreedy(t, 900, 100, RejectKeep)

	// Make the two deficit ticks after the delivery visible to the planner.
	_, err := f.ctx.Buffer.Get(3)
	require.NoError(t, err)

	d, err := g.Plan(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, BranchOffer, d.Branch)
	require.NotNil(t, d.Offer)
	assert.True(t, d.Accepted)
	assert.InDelta(t, 150.0, d.Surplus, 1e-9)
	assert.InDelta(t, 300.0, d.Delta.Discharge, 1e-9, "discharge leaves 600 for the coming deficits")
	assert.Zero(t, d.Delta.Charge)
	assert.InDelta(t, 450.0, d.Offer.Quantity, 1e-9)
	assert.Equal(t, model.IntradayContinuous, d.Offer.Market)
	assert.InDelta(t, 0.4, d.Offer.Price, 1e-12)
	assert.Equal(t, 1, f.ctx.Book.Len())

	s, err := f.ctx.Buffer.Get(1)
	require.NoError(t, err)
	assert.InDelta(t, 600.0, s.Battery, 1e-9)
	assert.InDelta(t, 450.0, s.Delivered, 1e-9)
	assert.InDelta(t, 0, s.Residual(), 1e-9)
}

func TestGreedy_DeficitUsesBatteryThenGrid(t *testing.T) {
	f := newFixture(t, evening, []float64{0, 30}, []float64{0, 0}, 10, model.PriceVector{1, 1, 1})
	g := newGreedy(t, 10, 100, RejectKeep)

	d, err := g.Plan(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, BranchDeficit, d.Branch)
	assert.Nil(t, d.Offer)
	assert.InDelta(t, 10.0, d.Delta.Discharge, 1e-9)
	assert.InDelta(t, 20.0, d.Delta.GridDemand, 1e-9)

	s, err := f.ctx.Buffer.Get(1)
	require.NoError(t, err)
	assert.Zero(t, s.Battery)
	assert.InDelta(t, 0, s.Residual(), 1e-9)
}

func TestGreedy_RejectedOffer(t *testing.T) {
	load := []float64{0, 0}
	pv := []float64{0, 150}

	t.Run("keep books the contract", func(t *testing.T) {
		f := newFixture(t, evening, load, pv, 0, model.PriceVector{0.4, 0.4, 0.4})
		f.oracle.accept = false
		g := newGreedy(t, 0, 100, RejectKeep)

		d, err := g.Plan(f.ctx, 1)
		require.NoError(t, err)
		assert.True(t, d.Rejected())
		assert.Len(t, f.oracle.offers, 1)
		assert.Equal(t, 1, f.ctx.Book.Len())

		s, err := f.ctx.Buffer.Get(1)
		require.NoError(t, err)
		assert.InDelta(t, 150.0, s.Delivered, 1e-9)
		assert.Zero(t, s.Charge)
	})

	t.Run("drop stores the surplus", func(t *testing.T) {
		f := newFixture(t, evening, load, pv, 0, model.PriceVector{0.4, 0.4, 0.4})
		f.oracle.accept = false
		g := newGreedy(t, 0, 100, RejectDrop)

		d, err := g.Plan(f.ctx, 1)
		require.NoError(t, err)
		assert.True(t, d.Rejected())
		assert.Zero(t, f.ctx.Book.Len())

		s, err := f.ctx.Buffer.Get(1)
		require.NoError(t, err)
		assert.Zero(t, s.Delivered)
		assert.InDelta(t, 150.0, s.Charge, 1e-9)
		assert.InDelta(t, 0, s.Residual(), 1e-9)
	})
}

func TestGreedy_SelfConsumesBelowGridPrice(t *testing.T) {
	f := newFixture(t, evening, []float64{0, 0}, []float64{0, 150}, 900, model.PriceVector{0.2, 0.2, 0.2})
	g := newGreedy(t, 900, 100, RejectKeep)

	d, err := g.Plan(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, BranchSelfConsume, d.Branch)
	assert.Nil(t, d.Offer)
	assert.InDelta(t, 100.0, d.Delta.Charge, 1e-9)
	assert.InDelta(t, 50.0, d.Delta.GridSupply, 1e-9)
}

func TestGreedy_DefersUntilBestMarketCloses(t *testing.T) {
	noon := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	n := 60
	load := make([]float64, n)
	pv := make([]float64, n)
	pv[49] = 200

	t.Run("auction best at day-ahead closure", func(t *testing.T) {
		f := newFixture(t, noon, load, pv, 0, model.PriceVector{0.35, 0.5, 0.31})
		g := newGreedy(t, 0, 100, RejectKeep)

		d, err := g.Plan(f.ctx, 49)
		require.NoError(t, err)
		assert.Equal(t, BranchDeferred, d.Branch)
		assert.Empty(t, f.oracle.offers)

		s, err := f.ctx.Buffer.Get(49)
		require.NoError(t, err)
		assert.InDelta(t, 200.0, s.Residual(), 1e-9, "deferred offsets stay untouched")
	})

	t.Run("day-ahead best at its closure", func(t *testing.T) {
		f := newFixture(t, noon, load, pv, 0, model.PriceVector{0.6, 0.5, 0.31})
		g := newGreedy(t, 0, 100, RejectKeep)

		d, err := g.Plan(f.ctx, 49)
		require.NoError(t, err)
		assert.Equal(t, BranchOffer, d.Branch)
		require.NotNil(t, d.Offer)
		assert.Equal(t, model.DayAhead, d.Offer.Market)
		assert.WithinDuration(t, time.Date(2024, time.June, 2, 0, 15, 0, 0, time.UTC), d.Offer.Delivery, 0)
	})
}

func TestGreedy_CurrentTickNeverTrades(t *testing.T) {
	f := newFixture(t, evening, []float64{0}, []float64{500}, 0, model.PriceVector{9, 9, 9})
	g := newGreedy(t, 0, 100, RejectKeep)

	d, err := g.Plan(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, BranchStore, d.Branch)
	assert.Empty(t, f.oracle.offers)
	assert.InDelta(t, 500.0, d.Delta.Charge, 1e-9)
}

func TestGreedy_PlanIsIdempotentOnDecidedSlot(t *testing.T) {
	f := newFixture(t, evening, []float64{0, 30}, []float64{0, 0}, 10, model.PriceVector{1, 1, 1})
	g := newGreedy(t, 10, 100, RejectKeep)

	_, err := g.Plan(f.ctx, 1)
	require.NoError(t, err)
	first, err := f.ctx.Buffer.Get(1)
	require.NoError(t, err)

	d, err := g.Plan(f.ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0, d.Surplus, 1e-9)
	second, err := f.ctx.Buffer.Get(1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNewGreedy_Validation(t *testing.T) {
	rules, err := market.NewEligibility(market.DefaultRules())
	require.NoError(t, err)
	bat := model.BatteryParams{Min: 0, Max: 10}

	_, err = NewGreedy(GreedyParams{Battery: bat}, nil)
	assert.Error(t, err)
	_, err = NewGreedy(GreedyParams{Battery: bat, MinOffer: -1}, rules)
	assert.Error(t, err)
	_, err = NewGreedy(GreedyParams{Battery: bat, OnReject: "retry"}, rules)
	assert.Error(t, err)
	_, err = NewGreedy(GreedyParams{Battery: model.BatteryParams{Min: 5, Max: 1}}, rules)
	assert.Error(t, err)

	g, err := NewGreedy(GreedyParams{Battery: bat}, rules)
	require.NoError(t, err)
	assert.Equal(t, RejectKeep, g.p.OnReject)
}

func TestSelfConsumption(t *testing.T) {
	f := newFixture(t, evening, []float64{0, 30, 0}, []float64{50, 0, 100}, 0, model.PriceVector{9, 9, 9})
	p, err := NewSelfConsumption(model.BatteryParams{Min: 0, Max: 60})
	require.NoError(t, err)

	for ahead := 0; ahead < 3; ahead++ {
		d, err := p.Plan(f.ctx, ahead)
		require.NoError(t, err)
		assert.Nil(t, d.Offer)
	}
	levels := []float64{50, 20, 60}
	supply := []float64{0, 0, 60}
	for i := 0; i < 3; i++ {
		s, err := f.ctx.Buffer.Get(i)
		require.NoError(t, err)
		assert.InDelta(t, levels[i], s.Battery, 1e-9, "tick %d", i)
		assert.InDelta(t, supply[i], s.GridSupply, 1e-9, "tick %d", i)
		assert.InDelta(t, 0, s.Residual(), 1e-9, "tick %d", i)
	}
	assert.Empty(t, f.oracle.offers)
}
