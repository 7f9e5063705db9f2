package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"prosumer-backtest/internal/backtest"
	"prosumer-backtest/internal/config"
	"prosumer-backtest/internal/model"
)

// Demo:
// - Generate a synthetic PV, load and price dataset
// - Run the greedy planner and the self-consumption baseline side by side
// - Print the first ticks to show how the pieces fit together
func main() {
	cfgPath := flag.String("config", "", "Path to YAML scenario (optional)")
	days := flag.Int("days", 3, "Number of simulated days")
	n := flag.Int("n", 12, "Number of ticks to print")
	seed := flag.Int64("seed", 1, "Synthetic data seed")
	outDir := flag.String("out", "", "Optional directory to write the greedy run reports")
	flag.Parse()

	// Defaults (can be overridden via --config).
	start := time.Date(2022, time.July, 1, 0, 0, 0, 0, time.UTC)
	cfg := &config.Config{
		Scenario: config.ScenarioConfig{
			Name:  "demo",
			Start: start.Format(time.RFC3339),
			End:   start.Add(time.Duration(*days)*24*time.Hour - 15*time.Minute).Format(time.RFC3339),
		},
		Battery: config.BatteryConfig{Min: 0, Max: 1000},
		Markets: config.MarketsConfig{MinOffer: 100},
		Grid:    config.GridConfig{Residential: 0.3, FeedIn: 0.07},
		Prices: config.PriceConfig{
			Smoothing:  0.5,
			Profile:    "time_of_day",
			Volatility: config.VolatilityConfig{DA: 0.002, IA: 0.002},
		},
		Data: config.DataConfig{Synthetic: true, Seed: *seed},
	}
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	h, err := cfg.Horizon()
	if err != nil {
		panic(err)
	}
	ds, err := cfg.Dataset(h, nil)
	if err != nil {
		panic(err)
	}

	greedy, err := cfg.Job(h, ds)
	if err != nil {
		panic(err)
	}
	baseCfg := *cfg
	baseCfg.Planner.Name = config.PlannerSelfConsumption
	baseline, err := baseCfg.Job(h, ds)
	if err != nil {
		panic(err)
	}
	baseline.Name = "baseline"

	results, err := backtest.RunBatch(context.Background(), []backtest.Job{greedy, baseline}, 2)
	if err != nil {
		panic(err)
	}
	res, base := results[0], results[1]

	fmt.Printf("%-17s %-12s %8s %8s %8s %8s %8s %8s %8s\n",
		"time", "action", "pv", "load", "battery", "sold", "grid+", "grid-", "total")
	for i := 0; i < *n && i < len(res.Ticks); i++ {
		t := res.Ticks[i]
		fmt.Printf("%-17s %-12s %8.2f %8.2f %8.2f %8.2f %8.2f %8.2f %8.4f\n",
			t.Time.Format("2006-01-02 15:04"), t.Action, t.PV, t.Load, t.Battery,
			t.Delivered, t.GridDemand, t.GridSupply, t.Total)
	}

	fmt.Println()
	for _, m := range model.Markets {
		fmt.Printf("%-22s %10.4f\n", m.Name()+" gain", res.Gains[m])
	}
	fmt.Printf("%-22s %10.4f\n", "greedy total", res.Total)
	fmt.Printf("%-22s %10.4f\n", "self-consumption total", base.Total)
	fmt.Printf("%-22s %10d\n", "offers", res.Offers)
	fmt.Printf("%-22s %10d\n", "violations", res.ViolationCount())

	if *outDir != "" {
		if err := backtest.WriteReports(*outDir, res); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote reports to %s\n", *outDir)
	}
}
