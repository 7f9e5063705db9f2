package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

func horizon(t *testing.T, n int) clock.Horizon {
	t.Helper()
	start := time.Date(2022, time.July, 1, 0, 0, 0, 0, time.UTC)
	h, err := clock.NewHorizon(start, start.Add(time.Duration(n-1)*clock.Step))
	require.NoError(t, err)
	return h
}

func TestComputePotential_Stats(t *testing.T) {
	prices := []float64{0.1, 0.5, 0.3, 0.2, 0.4}
	p := ComputePotential(model.IntradayContinuous, horizon(t, 5), prices, 0.3)

	assert.Equal(t, 5, p.Count)
	assert.Equal(t, 0.1, p.Min)
	assert.Equal(t, 0.5, p.Max)
	assert.InDelta(t, 0.3, p.Mean, 1e-12)
	assert.InDelta(t, 0.12, p.P05, 1e-12)
	assert.InDelta(t, 0.48, p.P95, 1e-12)
	assert.Equal(t, 3, p.AboveGrid)
	assert.WithinDuration(t, time.Date(2022, time.July, 1, 1, 0, 0, 0, time.UTC), p.End, 0)
}

func TestComputePotential_Empty(t *testing.T) {
	p := ComputePotential(model.DayAhead, horizon(t, 1), nil, 0.3)
	assert.Zero(t, p.Count)
	assert.Zero(t, p.OracleProfit)
}

func TestOracleProfit(t *testing.T) {
	assert.Zero(t, oracleProfitCanonical([]float64{1, 1, 1}), "flat prices earn nothing")

	// Buy two steps cheap, sell them back dear. The starting charge must be
	// kept, so the remaining high ticks add nothing.
	got := oracleProfitCanonical([]float64{0, 0, 1, 1, 1, 1})
	assert.InDelta(t, 0.5, got, 1e-12)

	// Selling first and buying back later counts too.
	assert.InDelta(t, 0.25, oracleProfitCanonical([]float64{2, 1}), 1e-12)

	// Never loses money: idling is always allowed.
	assert.GreaterOrEqual(t, oracleProfitCanonical([]float64{5, 4, 3, 2, 1}), 0.0)
}

func TestRankMarkets(t *testing.T) {
	var prices [model.NumMarkets][]float64
	prices[model.DayAhead] = []float64{0.25, 0.25, 0.25, 0.25}
	prices[model.IntradayAuction] = []float64{0.5, 0.5, 0.5, 0.5}
	prices[model.IntradayContinuous] = []float64{0.25, 0.75, 0.5, 0.5}

	got := RankMarkets(horizon(t, 4), prices, 0.3)
	require.Len(t, got, 3)
	assert.Equal(t, model.IntradayContinuous, got[0].Market, "same mean as IA, higher oracle profit")
	assert.Equal(t, model.IntradayAuction, got[1].Market)
	assert.Equal(t, model.DayAhead, got[2].Market)

	prices[model.DayAhead] = nil
	assert.Len(t, RankMarkets(horizon(t, 4), prices, 0.3), 2)
}
