package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prosumer-backtest/internal/contract"
	"prosumer-backtest/internal/market"
	"prosumer-backtest/internal/model"
	"prosumer-backtest/internal/strategy"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

const scenarioYAML = `
scenario:
  name: july
  start: "2022-07-01T00:00"
  end: "2022-07-03T00:00"
  timezone: Europe/Berlin
battery_file: batteries/home.yaml
battery:
  initial: 2
markets:
  min_offer: 0.1
grid:
  residential: 0.32
  feed_in: 0.08
pv:
  rated_power: 10
  reference_power: 5
prices:
  smoothing: 0.9
  profile: time_of_day
  volatility:
    da: 0.002
    ia: 0.002
data:
  dir: data
  pv: pv.csv
  prices:
    da: da.csv
    ia: ia.csv
    ic: ic.csv
`

const batteryYAML = `
battery:
  name: home-10
  min: 0.5
  max: 10
`

func TestLoad_MergesBatteryAndFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "batteries/home.yaml", batteryYAML)
	path := writeFile(t, dir, "scenario.yaml", scenarioYAML)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "home-10", c.Battery.Name)
	assert.Equal(t, model.BatteryParams{Min: 0.5, Max: 10, Initial: 2}, c.Battery.ToModelParams())
	assert.Equal(t, "12:00", c.Markets.DayAheadClosure)
	assert.Equal(t, "16:00", c.Markets.IntradayAuctionClosure)
	assert.Equal(t, 1, c.Markets.ContinuousMinLead)
	assert.Equal(t, PlannerGreedy, c.Planner.Name)
	assert.Equal(t, 192, c.Planner.BufferLength)
	assert.Equal(t, string(strategy.RejectKeep), c.Planner.OnReject)
	assert.Equal(t, string(contract.SettleRealized), c.Planner.Settlement)
	assert.InDelta(t, 0.001, c.Data.PriceScale, 1e-12)
	assert.InDelta(t, 2.0, c.PVScale(), 1e-12)
	assert.Equal(t, filepath.Join(dir, "data"), c.Data.Dir)

	h, err := c.Horizon()
	require.NoError(t, err)
	assert.Equal(t, 193, h.Len())
	assert.Equal(t, "Europe/Berlin", h.Start.Location().String())

	p := c.EngineParams(h)
	assert.Equal(t, market.ProfileTimeOfDay, p.PriceProfile)
	assert.Equal(t, model.PriceVector{0.002, 0.002, 0}, p.Volatility)
	assert.InDelta(t, 0.32, p.GridResidential, 1e-12)

	fs, err := c.Files()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "pv.csv"), fs.PV)
	assert.Equal(t, filepath.Join(dir, "data", "ic.csv"), fs.Prices[model.IntradayContinuous])
	assert.Empty(t, fs.Load)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "batteries/home.yaml", batteryYAML)
	path := writeFile(t, dir, "scenario.yaml", scenarioYAML)
	t.Setenv("SCENARIO_DATA_DIR", "/srv/data")
	t.Setenv("SQLITE_PATH", "/tmp/runs.db")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", c.Data.Dir)
	assert.Equal(t, "/tmp/runs.db", c.Output.SQLitePath)
}

func validConfig() *Config {
	c := &Config{
		Scenario: ScenarioConfig{Start: "2022-07-01", End: "2022-07-02"},
		Battery:  BatteryConfig{Max: 1000},
		Data:     DataConfig{Synthetic: true},
	}
	c.ApplyDefaults()
	return c
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(c *Config){
		"end before start":   func(c *Config) { c.Scenario.End = "2022-06-30" },
		"bad time":           func(c *Config) { c.Scenario.Start = "yesterday" },
		"bad timezone":       func(c *Config) { c.Scenario.Timezone = "Mars/Olympus" },
		"battery":            func(c *Config) { c.Battery.Min = 2000 },
		"closure":            func(c *Config) { c.Markets.DayAheadClosure = "25:00" },
		"negative lead":      func(c *Config) { c.Markets.ContinuousMinLead = -1 },
		"negative offer":     func(c *Config) { c.Markets.MinOffer = -1 },
		"smoothing":          func(c *Config) { c.Prices.Smoothing = 1 },
		"profile":            func(c *Config) { c.Prices.Profile = "weekly" },
		"planner":            func(c *Config) { c.Planner.Name = "lp" },
		"reject policy":      func(c *Config) { c.Planner.OnReject = "retry" },
		"settlement":         func(c *Config) { c.Planner.Settlement = "average" },
		"comma":              func(c *Config) { c.Data.Comma = ";;" },
		"missing data files": func(c *Config) { c.Data.Synthetic = false },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}

func TestRulesFromConfig(t *testing.T) {
	c := validConfig()
	c.Markets.DayAheadClosure = "11:00"
	c.Markets.ContinuousMinLead = 2
	rules, err := c.Rules()
	require.NoError(t, err)
	assert.Equal(t, 11*60, rules.Rule(model.DayAhead).Closure.Minutes())
	assert.Equal(t, 2, rules.Rule(model.IntradayContinuous).MinLead)
	assert.Equal(t, 16*60, rules.Rule(model.IntradayAuction).Closure.Minutes())
}

func TestPlannerAndDataset(t *testing.T) {
	c := validConfig()
	rules, err := c.Rules()
	require.NoError(t, err)

	p, err := c.BuildPlanner(rules)
	require.NoError(t, err)
	assert.Equal(t, "greedy", p.Name())

	c.Planner.Name = PlannerSelfConsumption
	p, err = c.BuildPlanner(rules)
	require.NoError(t, err)
	assert.Equal(t, "self_consumption", p.Name())

	h, err := c.Horizon()
	require.NoError(t, err)
	ds, err := c.Dataset(h, nil)
	require.NoError(t, err)
	assert.Len(t, ds.PV, h.Len())
	assert.Len(t, c.HouseholdOptions(ds), 1)
}

func TestHorizonFormats(t *testing.T) {
	c := validConfig()
	c.Scenario.Start = "2022-07-01T10:00:00Z"
	c.Scenario.End = "2022-07-01 12:00"
	h, err := c.Horizon()
	require.NoError(t, err)
	assert.True(t, h.Start.Equal(time.Date(2022, 7, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 9, h.Len())
}

func TestMergeBattery(t *testing.T) {
	base := BatteryConfig{Name: "a", Min: 1, Max: 10, Initial: 1}
	out := MergeBattery(base, BatteryConfig{Max: 12})
	assert.Equal(t, BatteryConfig{Name: "a", Min: 1, Max: 12, Initial: 1}, out)
}

func TestJob_RunsSyntheticScenario(t *testing.T) {
	c := validConfig()
	c.Markets.MinOffer = 100
	h, err := c.Horizon()
	require.NoError(t, err)
	ds, err := c.Dataset(h, nil)
	require.NoError(t, err)

	job, err := c.Job(h, ds)
	require.NoError(t, err)
	assert.Equal(t, "scenario", job.Name)

	res, err := job.Engine.Run(context.Background(), job.Source, job.Oracle, job.Planner)
	require.NoError(t, err)
	assert.Len(t, res.Ticks, h.Len())
	assert.Zero(t, res.ViolationCount())
}
