package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"prosumer-backtest/internal/analysis"
	"prosumer-backtest/internal/backtest"
	"prosumer-backtest/internal/config"
	"prosumer-backtest/internal/data"
	"prosumer-backtest/internal/model"
	"prosumer-backtest/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "simulate":
		cmdSimulate(ctx, os.Args[2:])
	case "compare":
		cmdCompare(ctx, os.Args[2:])
	case "stats":
		cmdStats(os.Args[2:])
	case "runs":
		cmdRuns(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli simulate --config examples/scenario.yaml [--out results] [--store]")
	fmt.Println("  cli compare  --config a.yaml,b.yaml [--parallel 4]")
	fmt.Println("  cli stats    --config examples/scenario.yaml")
	fmt.Println("  cli runs     --db results/runs.db [--violations RUN_ID]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - simulate always writes ticks.csv, actions.csv and violations.csv")
	fmt.Println("  - runs with violations are stored in sqlite when output.sqlite_path is set")
	fmt.Println("  - stats ranks the markets by mean price and storage arbitrage potential")
}

func cmdSimulate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML scenario")
	outDir := fs.String("out", "", "Output directory (overrides output.dir)")
	force := fs.Bool("store", false, "Store the run in sqlite even without violations")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}

	res := runScenario(ctx, cfg)

	if err := backtest.WriteReports(cfg.Output.Dir, res); err != nil {
		panic(err)
	}
	fmt.Printf("Wrote %d ticks and %d actions to %s\n", len(res.Ticks), len(res.Actions), cfg.Output.Dir)
	printSummary(cfg.Scenario.Name, res)

	if cfg.Output.SQLitePath == "" {
		if res.ViolationCount() > 0 {
			fmt.Println("output.sqlite_path is not set; violation log kept in CSV only")
		}
		return
	}
	rec, err := store.NewSQLiteRecorder(cfg.Output.SQLitePath)
	if err != nil {
		panic(err)
	}
	defer rec.Close()
	id, err := store.RecordIfNeeded(ctx, rec, cfg.Scenario.Name, res, *force || cfg.Output.ForceStore)
	if err != nil {
		panic(err)
	}
	if id != "" {
		fmt.Printf("Stored run %s in %s\n", id, cfg.Output.SQLitePath)
	}
}

func cmdCompare(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	cfgPaths := fs.String("config", "", "Comma-separated YAML scenarios")
	parallel := fs.Int("parallel", 4, "Maximum concurrent runs")
	_ = fs.Parse(args)

	paths := splitPaths(*cfgPaths)
	if len(paths) == 0 {
		fmt.Println("--config is required")
		os.Exit(2)
	}

	cache := data.GetCache()
	jobs := make([]backtest.Job, 0, len(paths))
	for _, p := range paths {
		cfg, err := config.Load(p)
		if err != nil {
			panic(fmt.Errorf("%s: %w", p, err))
		}
		job := buildJob(cfg, cache)
		if job.Name == "scenario" {
			job.Name = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		}
		jobs = append(jobs, job)
	}

	results, err := backtest.RunBatch(ctx, jobs, *parallel)
	if err != nil {
		panic(err)
	}
	fmt.Printf("%-20s %-16s %-12s %-12s %-12s %-8s %-8s %-10s\n",
		"scenario", "planner", "total", "market", "grid", "offers", "rejects", "violations")
	for i, res := range results {
		fmt.Printf("%-20s %-16s %-12.4f %-12.4f %-12.4f %-8d %-8d %-10d\n",
			jobs[i].Name, res.Planner, res.Total, res.SettledTotal(), res.GridFeedIn-res.GridCost,
			res.Offers, res.Rejections, res.ViolationCount())
	}
}

func cmdStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML scenario")
	_ = fs.Parse(args)

	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	h, err := cfg.Horizon()
	if err != nil {
		panic(err)
	}
	ds, err := cfg.Dataset(h, data.GetCache())
	if err != nil {
		panic(err)
	}

	ranked := analysis.RankMarkets(h, ds.Prices, cfg.Grid.Residential)
	fmt.Printf("%-4s %-6s %-8s %-10s %-10s %-10s %-10s %-10s %-12s\n",
		"rank", "market", "count", "mean", "p05", "p95", "p95-p05", ">=grid", "oracle")
	for i, r := range ranked {
		fmt.Printf("%-4d %-6s %-8d %-10.4f %-10.4f %-10.4f %-10.4f %-10d %-12.4f\n",
			i+1, r.Market, r.Count, r.Mean, r.P05, r.P95, r.SpreadP95P05, r.AboveGrid, r.OracleProfit)
	}
}

func cmdRuns(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", os.Getenv("SQLITE_PATH"), "Path to the sqlite database")
	runID := fs.String("violations", "", "Print the violation log of this run")
	limit := fs.Int("n", 20, "Number of runs to list")
	_ = fs.Parse(args)

	if *dbPath == "" {
		fmt.Println("--db is required")
		os.Exit(2)
	}
	rec, err := store.NewSQLiteRecorder(*dbPath)
	if err != nil {
		panic(err)
	}
	defer rec.Close()

	if *runID != "" {
		rows, err := rec.Violations(ctx, *runID)
		if err != nil {
			panic(err)
		}
		for _, v := range rows {
			fmt.Printf("%s  %s\n", v.Time.Format("2006-01-02 15:04"), v.Text)
		}
		return
	}

	runs, err := rec.Runs(ctx, *limit)
	if err != nil {
		panic(err)
	}
	fmt.Printf("%-36s %-16s %-16s %-12s %-10s\n", "id", "scenario", "planner", "total", "violations")
	for _, r := range runs {
		fmt.Printf("%-36s %-16s %-16s %-12.4f %-10d\n", r.ID, r.Scenario, r.Planner, r.Total, r.Violations)
	}
}

func runScenario(ctx context.Context, cfg *config.Config) *backtest.Result {
	job := buildJob(cfg, data.GetCache())
	res, err := job.Engine.Run(ctx, job.Source, job.Oracle, job.Planner)
	if err != nil {
		panic(err)
	}
	return res
}

func buildJob(cfg *config.Config, cache *data.SeriesCache) backtest.Job {
	h, err := cfg.Horizon()
	if err != nil {
		panic(err)
	}
	ds, err := cfg.Dataset(h, cache)
	if err != nil {
		panic(err)
	}
	job, err := cfg.Job(h, ds)
	if err != nil {
		panic(err)
	}
	return job
}

func printSummary(name string, res *backtest.Result) {
	fmt.Printf("Scenario %s (%s)\n", name, res.Planner)
	for _, m := range model.Markets {
		fmt.Printf("  %-20s %.4f (delivered %.3f)\n", m.Name()+" gain", res.Gains[m], res.Delivered[m])
	}
	fmt.Printf("  %-20s %.4f\n", "grid feed-in", res.GridFeedIn)
	fmt.Printf("  %-20s %.4f\n", "grid cost", res.GridCost)
	fmt.Printf("  %-20s %.4f\n", "total", res.Total)
	fmt.Printf("  offers=%d rejected=%d open=%d final battery=%.3f\n",
		res.Offers, res.Rejections, res.OpenContracts, res.FinalBattery)
	fmt.Printf("  violations=%d\n", res.ViolationCount())
}

func splitPaths(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
