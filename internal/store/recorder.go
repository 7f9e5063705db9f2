// Package store persists run logs for later inspection.
package store

import (
	"context"
	"log"
	"time"

	"prosumer-backtest/internal/backtest"
)

// RunSummary is one stored run.
type RunSummary struct {
	ID         string    `json:"id"`
	Scenario   string    `json:"scenario"`
	Planner    string    `json:"planner"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Total      float64   `json:"total"`
	Offers     int       `json:"offers"`
	Rejections int       `json:"rejections"`
	Violations int       `json:"violations"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder persists the tick, action and violation logs of finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, scenario string, res *backtest.Result) (string, error)
	Runs(ctx context.Context, limit int) ([]RunSummary, error)
	Violations(ctx context.Context, runID string) ([]backtest.ViolationRow, error)
	Close() error
}

// RecordIfNeeded stores res when it logged any violation, or always when
// force is set. It returns the run id, or "" when nothing was stored.
func RecordIfNeeded(ctx context.Context, rec Recorder, scenario string, res *backtest.Result, force bool) (string, error) {
	if rec == nil || (!force && res.ViolationCount() == 0) {
		return "", nil
	}
	id, err := rec.RecordRun(ctx, scenario, res)
	if err != nil {
		return "", err
	}
	if id != "" {
		log.Printf("[Store] run %s stored (%d violations)", id, res.ViolationCount())
	}
	return id, nil
}
