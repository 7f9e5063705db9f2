package store

import (
	"context"

	"prosumer-backtest/internal/backtest"
)

// NoopRecorder is used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(context.Context, string, *backtest.Result) (string, error) {
	return "", nil
}
func (n *NoopRecorder) Runs(context.Context, int) ([]RunSummary, error) { return nil, nil }
func (n *NoopRecorder) Violations(context.Context, string) ([]backtest.ViolationRow, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
