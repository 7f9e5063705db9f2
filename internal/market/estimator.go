package market

import (
	"fmt"
	"math"
	"time"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

// Profile selects how many smoothed estimates are kept per market.
type Profile string

const (
	// ProfileFlat keeps a single estimate per market.
	ProfileFlat Profile = "flat"
	// ProfileTimeOfDay keeps one estimate per quarter-hour of the day.
	ProfileTimeOfDay Profile = "time_of_day"
)

func (p Profile) slots() int {
	if p == ProfileTimeOfDay {
		return clock.TicksPerDay
	}
	return 1
}

// Estimator keeps exponentially smoothed price estimates per market:
// estimate' = estimate*lambda + realized*(1-lambda). The first observation of
// a slot seeds it directly.
type Estimator struct {
	lambda     float64
	volatility model.PriceVector
	profile    Profile
	est        [model.NumMarkets][]float64
	seen       [model.NumMarkets][]bool
}

func NewEstimator(lambda float64, volatility model.PriceVector, profile Profile) (*Estimator, error) {
	if lambda < 0 || lambda >= 1 {
		return nil, fmt.Errorf("price smoothing coefficient must be in [0,1), got %v", lambda)
	}
	if profile == "" {
		profile = ProfileFlat
	}
	if profile != ProfileFlat && profile != ProfileTimeOfDay {
		return nil, fmt.Errorf("unknown price profile %q", profile)
	}
	e := &Estimator{lambda: lambda, volatility: volatility, profile: profile}
	for _, m := range model.Markets {
		e.est[m] = make([]float64, profile.slots())
		e.seen[m] = make([]bool, profile.slots())
	}
	return e, nil
}

func (e *Estimator) slot(t time.Time) int {
	if e.profile != ProfileTimeOfDay {
		return 0
	}
	return (t.Hour()*60 + t.Minute()) / int(clock.Step/time.Minute)
}

// Observe folds the realized prices at t into the estimates.
func (e *Estimator) Observe(t time.Time, realized model.PriceVector) {
	i := e.slot(t)
	for _, m := range model.Markets {
		if !e.seen[m][i] {
			e.est[m][i] = realized[m]
			e.seen[m][i] = true
			continue
		}
		e.est[m][i] = e.est[m][i]*e.lambda + realized[m]*(1-e.lambda)
	}
}

// Estimate is the current smoothed price of m for the slot containing t.
func (e *Estimator) Estimate(m model.MarketID, t time.Time) float64 {
	return e.est[m][e.slot(t)]
}

// Forecast returns the lead-time-discounted price forecast for a delivery
// `ahead` ticks after now: estimate * (1 - sqrt(ahead) * volatility).
func (e *Estimator) Forecast(now time.Time, ahead int) model.PriceVector {
	delivery := now.Add(time.Duration(ahead) * clock.Step)
	var out model.PriceVector
	decay := math.Sqrt(float64(ahead))
	for _, m := range model.Markets {
		out[m] = e.Estimate(m, delivery) * (1 - decay*e.volatility[m])
	}
	return out
}
