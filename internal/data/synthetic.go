package data

import (
	"math"
	"math/rand"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

// SyntheticParams shape a generated dataset. Zero values fall back to the
// defaults in Synthetic.
type SyntheticParams struct {
	Load    float64 // constant base load per tick
	PVPeak  float64 // PV output per tick at solar noon
	Price   float64 // mean price
	Spread  float64 // peak-to-mean amplitude of the daily price curve
	Noise   float64 // relative price noise
	Premium model.PriceVector
	Seed    int64
}

// Synthetic generates a deterministic dataset over h: a bell-shaped PV day
// between 06:00 and 20:00, a constant load and daily price curves that peak
// in the evening. Each market gets its own premium and noise.
func Synthetic(h clock.Horizon, p SyntheticParams) *Dataset {
	if p.Load == 0 {
		p.Load = 50
	}
	if p.PVPeak == 0 {
		p.PVPeak = 300
	}
	if p.Price == 0 {
		p.Price = 0.3
	}
	if p.Spread == 0 {
		p.Spread = 0.15
	}
	if p.Seed == 0 {
		p.Seed = 1
	}
	rng := rand.New(rand.NewSource(p.Seed))

	n := h.Len()
	ds := &Dataset{Load: make([]float64, n), PV: make([]float64, n)}
	for _, m := range model.Markets {
		ds.Prices[m] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		ts := h.Time(clock.Tick(i))
		hour := float64(ts.Hour()) + float64(ts.Minute())/60

		ds.Load[i] = p.Load
		if hour > 6 && hour < 20 {
			ds.PV[i] = p.PVPeak * math.Pow(math.Sin(math.Pi*(hour-6)/14), 2)
		}
		curve := p.Price + p.Spread*math.Sin(2*math.Pi*(hour-13)/24)
		for _, m := range model.Markets {
			noise := 1 + p.Noise*(2*rng.Float64()-1)
			ds.Prices[m][i] = math.Max(0, (curve+p.Premium[m])*noise)
		}
	}
	return ds
}
