package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"prosumer-backtest/internal/backtest"
	"prosumer-backtest/internal/model"
)

// SQLiteRecorder stores runs in a single SQLite file.
type SQLiteRecorder struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the database at path and runs migrations.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Printf("[Store] sqlite recorder opened: %s", path)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			scenario    TEXT NOT NULL,
			planner     TEXT NOT NULL,
			start_ts    INTEGER NOT NULL,
			end_ts      INTEGER NOT NULL,
			gain_da     REAL NOT NULL,
			gain_ia     REAL NOT NULL,
			gain_ic     REAL NOT NULL,
			grid_feedin REAL NOT NULL,
			grid_cost   REAL NOT NULL,
			total       REAL NOT NULL,
			offers      INTEGER NOT NULL,
			rejections  INTEGER NOT NULL,
			violations  INTEGER NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id      TEXT NOT NULL,
			idx         INTEGER NOT NULL,
			ts          INTEGER NOT NULL,
			gain_da     REAL,
			gain_ia     REAL,
			gain_ic     REAL,
			grid_feedin REAL,
			grid_cost   REAL,
			total       REAL,
			battery     REAL,
			pv          REAL,
			load        REAL,
			charge      REAL,
			discharge   REAL,
			grid_demand REAL,
			grid_supply REAL,
			delivered   REAL,
			balance     REAL,
			PRIMARY KEY (run_id, idx),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS actions (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL,
			ts       INTEGER NOT NULL,
			kind     TEXT NOT NULL,
			market   TEXT NOT NULL,
			delivery INTEGER NOT NULL,
			price    REAL NOT NULL,
			quantity REAL NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_run ON actions(run_id, ts)`,
		`CREATE TABLE IF NOT EXISTS violations (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ts     INTEGER NOT NULL,
			text   TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_violations_run ON violations(run_id, ts)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun writes res and all its logs in one transaction and returns the new run id.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, scenario string, res *backtest.Result) (string, error) {
	if res == nil {
		return "", errors.New("result is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	var start, end int64
	if n := len(res.Ticks); n > 0 {
		start = res.Ticks[0].Time.Unix()
		end = res.Ticks[n-1].Time.Unix()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, scenario, planner, start_ts, end_ts, gain_da, gain_ia, gain_ic,
		 grid_feedin, grid_cost, total, offers, rejections, violations, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, scenario, res.Planner, start, end,
		res.Gains[model.DayAhead], res.Gains[model.IntradayAuction], res.Gains[model.IntradayContinuous],
		res.GridFeedIn, res.GridCost, res.Total,
		res.Offers, res.Rejections, res.ViolationCount(), r.now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if err := insertTicks(ctx, tx, id, res.Ticks); err != nil {
		return "", fmt.Errorf("insert ticks: %w", err)
	}
	if err := insertActions(ctx, tx, id, res.Actions); err != nil {
		return "", fmt.Errorf("insert actions: %w", err)
	}
	if err := insertViolations(ctx, tx, id, res.Violations); err != nil {
		return "", fmt.Errorf("insert violations: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func insertTicks(ctx context.Context, tx *sql.Tx, runID string, ticks []backtest.TickRow) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ticks
		(run_id, idx, ts, gain_da, gain_ia, gain_ic, grid_feedin, grid_cost, total,
		 battery, pv, load, charge, discharge, grid_demand, grid_supply, delivered, balance)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range ticks {
		if _, err := stmt.ExecContext(ctx, runID, t.Index, t.Time.Unix(),
			t.Gains[model.DayAhead], t.Gains[model.IntradayAuction], t.Gains[model.IntradayContinuous],
			t.GridFeedIn, t.GridCost, t.Total,
			t.Battery, t.PV, t.Load, t.Charge, t.Discharge, t.GridDemand, t.GridSupply, t.Delivered, t.Balance,
		); err != nil {
			return err
		}
	}
	return nil
}

func insertActions(ctx context.Context, tx *sql.Tx, runID string, actions []backtest.ActionRow) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO actions
		(run_id, ts, kind, market, delivery, price, quantity) VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range actions {
		if _, err := stmt.ExecContext(ctx, runID, a.Time.Unix(), string(a.Kind), a.Market.String(),
			a.Delivery.Unix(), a.Price, a.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func insertViolations(ctx context.Context, tx *sql.Tx, runID string, rows []backtest.ViolationRow) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO violations (run_id, ts, text) VALUES (?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, v := range rows {
		if _, err := stmt.ExecContext(ctx, runID, v.Time.Unix(), v.Text); err != nil {
			return err
		}
	}
	return nil
}

// Runs lists stored runs, newest first.
func (r *SQLiteRecorder) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT id, scenario, planner, start_ts, end_ts, total,
		offers, rejections, violations, created_at
		FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var start, end, created int64
		if err := rows.Scan(&s.ID, &s.Scenario, &s.Planner, &start, &end, &s.Total,
			&s.Offers, &s.Rejections, &s.Violations, &created); err != nil {
			return nil, err
		}
		s.Start = time.Unix(start, 0).UTC()
		s.End = time.Unix(end, 0).UTC()
		s.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Violations returns the violation log of one run in time order.
func (r *SQLiteRecorder) Violations(ctx context.Context, runID string) ([]backtest.ViolationRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT ts, text FROM violations WHERE run_id = ? ORDER BY ts, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []backtest.ViolationRow
	for rows.Next() {
		var ts int64
		var v backtest.ViolationRow
		if err := rows.Scan(&ts, &v.Text); err != nil {
			return nil, err
		}
		v.Time = time.Unix(ts, 0).UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountRows returns the number of stored tick and action rows of a run.
func (r *SQLiteRecorder) CountRows(ctx context.Context, runID string) (ticks, actions int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ticks WHERE run_id = ?`, runID).Scan(&ticks); err != nil {
		return 0, 0, err
	}
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM actions WHERE run_id = ?`, runID).Scan(&actions)
	return ticks, actions, err
}

func (r *SQLiteRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
