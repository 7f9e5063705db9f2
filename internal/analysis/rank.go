package analysis

import (
	"sort"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

// RankMarkets computes the potential of every market and sorts them by mean
// price, highest first, breaking ties by OracleProfit. The mean decides
// where a household's surplus is best sold; the oracle profit shows how much
// a battery could add on top.
func RankMarkets(h clock.Horizon, prices [model.NumMarkets][]float64, gridResidential float64) []MarketPotential {
	out := make([]MarketPotential, 0, model.NumMarkets)
	for _, m := range model.Markets {
		if len(prices[m]) == 0 {
			continue
		}
		out = append(out, ComputePotential(m, h, prices[m], gridResidential))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Mean != out[j].Mean {
			return out[i].Mean > out[j].Mean
		}
		return out[i].OracleProfit > out[j].OracleProfit
	})
	return out
}
