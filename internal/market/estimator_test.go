package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prosumer-backtest/internal/model"
)

func TestNewEstimator_Validation(t *testing.T) {
	_, err := NewEstimator(1, model.PriceVector{}, ProfileFlat)
	assert.Error(t, err)
	_, err = NewEstimator(-0.1, model.PriceVector{}, ProfileFlat)
	assert.Error(t, err)
	_, err = NewEstimator(0.5, model.PriceVector{}, "hourly")
	assert.Error(t, err)

	e, err := NewEstimator(0.5, model.PriceVector{}, "")
	require.NoError(t, err)
	assert.Equal(t, ProfileFlat, e.profile)
}

func TestEstimator_Smoothing(t *testing.T) {
	e, err := NewEstimator(0.5, model.PriceVector{}, ProfileFlat)
	require.NoError(t, err)

	e.Observe(at(1, 0, 0), model.PriceVector{10, 20, 30})
	assert.Equal(t, 10.0, e.Estimate(model.DayAhead, at(1, 0, 0)), "first observation seeds")

	e.Observe(at(1, 0, 15), model.PriceVector{20, 20, 10})
	assert.InDelta(t, 15.0, e.Estimate(model.DayAhead, at(5, 7, 0)), 1e-12)
	assert.InDelta(t, 20.0, e.Estimate(model.IntradayAuction, at(1, 0, 0)), 1e-12)
	assert.InDelta(t, 20.0, e.Estimate(model.IntradayContinuous, at(1, 0, 0)), 1e-12)
}

func TestEstimator_ZeroLambdaTracksLatest(t *testing.T) {
	e, err := NewEstimator(0, model.PriceVector{}, ProfileFlat)
	require.NoError(t, err)
	for _, p := range []float64{1, 7, 3} {
		e.Observe(at(1, 0, 0), model.PriceVector{p, p, p})
	}
	assert.Equal(t, 3.0, e.Estimate(model.DayAhead, at(1, 0, 0)))
}

func TestEstimator_ForecastDecaysWithLead(t *testing.T) {
	e, err := NewEstimator(0, model.PriceVector{0.1, 0, 0.05}, ProfileFlat)
	require.NoError(t, err)
	e.Observe(at(1, 0, 0), model.PriceVector{10, 10, 10})

	f := e.Forecast(at(1, 0, 0), 4)
	assert.InDelta(t, 8.0, f[model.DayAhead], 1e-12)
	assert.InDelta(t, 10.0, f[model.IntradayAuction], 1e-12)
	assert.InDelta(t, 9.0, f[model.IntradayContinuous], 1e-12)

	f = e.Forecast(at(1, 0, 0), 0)
	assert.Equal(t, model.PriceVector{10, 10, 10}, f)
}

func TestEstimator_TimeOfDayProfile(t *testing.T) {
	e, err := NewEstimator(0.5, model.PriceVector{}, ProfileTimeOfDay)
	require.NoError(t, err)

	e.Observe(at(1, 0, 0), model.PriceVector{10, 10, 10})
	e.Observe(at(1, 0, 15), model.PriceVector{20, 20, 20})
	e.Observe(at(2, 0, 0), model.PriceVector{30, 30, 30})

	assert.InDelta(t, 20.0, e.Estimate(model.DayAhead, at(3, 0, 0)), 1e-12)
	assert.InDelta(t, 20.0, e.Estimate(model.DayAhead, at(3, 0, 15)), 1e-12)
	assert.Zero(t, e.Estimate(model.DayAhead, at(3, 12, 0)), "unseen slot")

	// Forecast reads the slot of the delivery tick.
	f := e.Forecast(at(1, 23, 45), 2)
	assert.InDelta(t, 20.0, f[model.DayAhead], 1e-12)
}
