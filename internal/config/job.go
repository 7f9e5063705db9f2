package config

import (
	"fmt"

	"prosumer-backtest/internal/backtest"
	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/data"
	"prosumer-backtest/internal/household"
	"prosumer-backtest/internal/market"
)

// Job wires one household run over h from the configuration and ds. Every
// job gets its own source, exchange and planner.
func (c *Config) Job(h clock.Horizon, ds *data.Dataset) (backtest.Job, error) {
	rules, err := c.Rules()
	if err != nil {
		return backtest.Job{}, err
	}
	eng, err := backtest.New(c.EngineParams(h), rules)
	if err != nil {
		return backtest.Job{}, err
	}
	src, err := household.NewSeries(ds.Load, ds.PV, c.HouseholdOptions(ds)...)
	if err != nil {
		return backtest.Job{}, fmt.Errorf("household: %w", err)
	}
	ex, err := market.NewExchange(h, ds.Prices, c.Markets.MinOffer, rules)
	if err != nil {
		return backtest.Job{}, fmt.Errorf("exchange: %w", err)
	}
	planner, err := c.BuildPlanner(rules)
	if err != nil {
		return backtest.Job{}, err
	}
	return backtest.Job{Name: c.Scenario.Name, Engine: eng, Source: src, Oracle: ex, Planner: planner}, nil
}
