package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"prosumer-backtest/internal/model"
)

// File names written by WriteReports.
const (
	TicksFile      = "ticks.csv"
	ActionsFile    = "actions.csv"
	ViolationsFile = "violations.csv"
)

// WriteReports writes the tick, action and violation logs into dir.
func WriteReports(dir string, res *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := WriteTicksCSV(filepath.Join(dir, TicksFile), res.Ticks); err != nil {
		return fmt.Errorf("write tick log: %w", err)
	}
	if err := WriteActionsCSV(filepath.Join(dir, ActionsFile), res.Actions); err != nil {
		return fmt.Errorf("write action log: %w", err)
	}
	if err := WriteViolationsCSV(filepath.Join(dir, ViolationsFile), res.Violations); err != nil {
		return fmt.Errorf("write violation log: %w", err)
	}
	return nil
}

func WriteTicksCSV(path string, ticks []TickRow) error {
	header := []string{"index", "time"}
	for _, m := range model.Markets {
		header = append(header, "gain_"+m.String())
	}
	header = append(header,
		"grid_feedin",
		"grid_cost",
		"total",
		"battery",
		"pv",
		"load",
		"charge",
		"discharge",
		"grid_demand",
		"grid_supply",
		"delivered",
		"action",
		"balance",
	)
	return writeCSV(path, header, len(ticks), func(i int) []string {
		r := ticks[i]
		row := []string{strconv.Itoa(r.Index), fmtTime(r.Time)}
		for _, m := range model.Markets {
			row = append(row, fmtFloat(r.Gains[m]))
		}
		return append(row,
			fmtFloat(r.GridFeedIn),
			fmtFloat(r.GridCost),
			fmtFloat(r.Total),
			fmtFloat(r.Battery),
			fmtFloat(r.PV),
			fmtFloat(r.Load),
			fmtFloat(r.Charge),
			fmtFloat(r.Discharge),
			fmtFloat(r.GridDemand),
			fmtFloat(r.GridSupply),
			fmtFloat(r.Delivered),
			string(r.Action),
			fmtFloat(r.Balance),
		)
	})
}

func WriteActionsCSV(path string, actions []ActionRow) error {
	header := []string{"time", "kind", "market", "delivery", "price", "quantity"}
	return writeCSV(path, header, len(actions), func(i int) []string {
		a := actions[i]
		return []string{
			fmtTime(a.Time),
			string(a.Kind),
			a.Market.String(),
			fmtTime(a.Delivery),
			fmtFloat(a.Price),
			fmtFloat(a.Quantity),
		}
	})
}

func WriteViolationsCSV(path string, violations []ViolationRow) error {
	header := []string{"time", "text"}
	return writeCSV(path, header, len(violations), func(i int) []string {
		return []string{fmtTime(violations[i].Time), violations[i].Text}
	})
}

func writeCSV(path string, header []string, n int, row func(int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
