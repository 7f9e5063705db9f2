package market

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

func newExchange(t *testing.T, n int, minLot float64) (*Exchange, clock.Horizon) {
	t.Helper()
	h, err := clock.NewHorizon(at(1, 0, 0), at(1, 0, 0).Add(time.Duration(n-1)*clock.Step))
	require.NoError(t, err)
	var series [model.NumMarkets][]float64
	for _, m := range model.Markets {
		series[m] = make([]float64, n)
		for i := range series[m] {
			series[m][i] = float64(10*i + int(m))
		}
	}
	x, err := NewExchange(h, series, minLot, defaultEligibility(t))
	require.NoError(t, err)
	return x, h
}

func TestExchange_Prices(t *testing.T) {
	x, _ := newExchange(t, 4, 1)

	p, err := x.Prices(2)
	require.NoError(t, err)
	assert.Equal(t, model.PriceVector{20, 21, 22}, p)

	_, err = x.Prices(4)
	assert.True(t, errors.Is(err, ErrExhausted))
	_, err = x.Prices(-1)
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestExchange_PlaceOffer(t *testing.T) {
	x, h := newExchange(t, 200, 1)
	_, err := x.Prices(40) // 10:00
	require.NoError(t, err)
	now := h.Time(40)

	assert.True(t, x.PlaceOffer(model.Contract{Market: model.IntradayContinuous, Delivery: now.Add(clock.Step), Quantity: 2}))
	assert.False(t, x.PlaceOffer(model.Contract{Market: model.IntradayContinuous, Delivery: now.Add(clock.Step), Quantity: 0.5}), "below lot")
	assert.False(t, x.PlaceOffer(model.Contract{Market: model.DayAhead, Delivery: now.Add(4 * clock.Step), Quantity: 2}), "same day")
	assert.True(t, x.PlaceOffer(model.Contract{Market: model.DayAhead, Delivery: at(2, 1, 0), Quantity: 2}))
	assert.False(t, x.PlaceOffer(model.Contract{Market: model.MarketID(7), Delivery: at(2, 1, 0), Quantity: 2}))

	accepted, rejected := x.Counts()
	assert.Equal(t, 2, accepted)
	assert.Equal(t, 3, rejected)
}

func TestNewExchange_Validation(t *testing.T) {
	h, err := clock.NewHorizon(at(1, 0, 0), at(1, 1, 0))
	require.NoError(t, err)
	_, err = NewExchange(h, [model.NumMarkets][]float64{}, 1, nil)
	assert.Error(t, err)
	_, err = NewExchange(h, [model.NumMarkets][]float64{}, -1, defaultEligibility(t))
	assert.Error(t, err)
}
