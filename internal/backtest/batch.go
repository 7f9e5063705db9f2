package backtest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"prosumer-backtest/internal/forecast"
	"prosumer-backtest/internal/market"
	"prosumer-backtest/internal/strategy"
)

// Job is one independent household run. Sources and oracles keep cursors,
// so jobs must not share them.
type Job struct {
	Name    string
	Engine  *Engine
	Source  forecast.Source
	Oracle  market.Oracle
	Planner strategy.Planner
}

// RunBatch runs jobs concurrently, at most limit at a time (limit <= 0 means
// no limit). Results keep the order of jobs. The first failing job cancels
// the rest.
func RunBatch(ctx context.Context, jobs []Job, limit int) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := job.Engine.Run(gctx, job.Source, job.Oracle, job.Planner)
			if err != nil {
				return fmt.Errorf("job %s: %w", job.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
