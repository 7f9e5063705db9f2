package analysis

import (
	"math"
	"sort"
	"time"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

// MarketPotential summarizes one market's price series over a horizon.
// OracleProfit is the profit of a canonical storage unit trading that market
// with perfect foresight:
//   - 1 energy unit of capacity, each tick moves a quarter of it
//   - lossless, starting and ending half full
//   - per tick either idle, charge one step or discharge one step
type MarketPotential struct {
	Market model.MarketID

	Start time.Time
	End   time.Time
	Count int

	Min  float64
	Max  float64
	Mean float64
	P05  float64
	P95  float64

	SpreadP95P05 float64

	// AboveGrid counts ticks priced at or above the residential grid price,
	// i.e. ticks where selling beats self-consumption.
	AboveGrid int

	OracleProfit float64
}

// ComputePotential summarizes prices, one value per tick of h.
func ComputePotential(m model.MarketID, h clock.Horizon, prices []float64, gridResidential float64) MarketPotential {
	p := MarketPotential{Market: m}
	if len(prices) == 0 {
		return p
	}
	p.Start = h.Start
	p.End = h.Time(clock.Tick(len(prices) - 1))
	p.Count = len(prices)

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(prices))
	for _, v := range prices {
		vals = append(vals, v)
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
		if v >= gridResidential {
			p.AboveGrid++
		}
	}
	sort.Float64s(vals)
	p.Min = minv
	p.Max = maxv
	p.Mean = sum / float64(len(vals))
	p.P05 = percentileSorted(vals, 0.05)
	p.P95 = percentileSorted(vals, 0.95)
	p.SpreadP95P05 = p.P95 - p.P05

	p.OracleProfit = oracleProfitCanonical(prices)
	return p
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// oracleStates is the number of state-of-charge steps of the canonical unit.
const oracleStates = 4

// oracleProfitCanonical runs a DP over the discretized state of charge. The
// unit must end at its starting charge, so the initial energy is not sold
// for free.
func oracleProfitCanonical(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	const step = 1.0 / oracleStates
	negInf := math.Inf(-1)
	dp := make([]float64, oracleStates+1)
	next := make([]float64, oracleStates+1)
	for i := range dp {
		dp[i] = negInf
	}
	dp[oracleStates/2] = 0

	for _, price := range prices {
		for i := range next {
			next[i] = negInf
		}
		for s := 0; s <= oracleStates; s++ {
			if math.IsInf(dp[s], -1) {
				continue
			}
			next[s] = math.Max(next[s], dp[s])
			if s < oracleStates {
				next[s+1] = math.Max(next[s+1], dp[s]-price*step)
			}
			if s > 0 {
				next[s-1] = math.Max(next[s-1], dp[s]+price*step)
			}
		}
		dp, next = next, dp
	}

	best := dp[oracleStates/2]
	if math.IsInf(best, -1) || best < 0 {
		return 0
	}
	return best
}
