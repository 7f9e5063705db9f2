package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func day(hour, min int) time.Time {
	return time.Date(2022, time.July, 1, hour, min, 0, 0, time.UTC)
}

func TestLoadSeries_CSV(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "da.csv", "Time;Price\n2022-07-01 13:00:00;200\n2022-07-01 12:00:00;100\n")

	pts, err := LoadSeries(p, SeriesOptions{Comma: ';', Scale: 0.001})
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.WithinDuration(t, day(12, 0), pts[0].Time, 0, "sorted by time")
	assert.InDelta(t, 0.1, pts[0].Value, 1e-12)
	assert.InDelta(t, 0.2, pts[1].Value, 1e-12)
}

func TestLoadSeries_CSVColumn(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "pv.csv", "kw,timestamp,mw\n1,2022-07-01T12:00:00Z,5\n")

	pts, err := LoadSeries(p, SeriesOptions{Column: "mw"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, pts[0].Value)

	pts, err = LoadSeries(p, SeriesOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, pts[0].Value, "first non-time column")

	_, err = LoadSeries(p, SeriesOptions{Column: "gw"})
	assert.Error(t, err)
}

func TestLoadSeries_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.csv", "Time,Price\nyesterday,1\n")
	_, err := LoadSeries(bad, SeriesOptions{})
	assert.Error(t, err)

	empty := writeFile(t, dir, "empty.csv", "Time,Price\n")
	_, err = LoadSeries(empty, SeriesOptions{})
	assert.Error(t, err)

	_, err = LoadSeries(filepath.Join(dir, "x.parquet"), SeriesOptions{})
	assert.Error(t, err)
}

func TestLoadSeries_JSON(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "load.json", `{"name":"load","unit":"kWh","data":[{"time":"2022-07-01T12:00:00Z","value":50}]}`)

	pts, err := LoadSeries(p, SeriesOptions{Scale: 2})
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.Equal(t, 100.0, pts[0].Value)
}

func TestAlign_ForwardFillsHourly(t *testing.T) {
	h, err := clock.NewHorizon(day(12, 0), day(13, 15))
	require.NoError(t, err)
	pts := []model.SeriesPoint{
		{Time: day(12, 0), Value: 1},
		{Time: day(13, 0), Value: 2},
	}

	got, err := Align(pts, h, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1, 2, 2}, got)
}

func TestAlign_Gaps(t *testing.T) {
	h, err := clock.NewHorizon(day(12, 0), day(14, 0))
	require.NoError(t, err)

	_, err = Align(nil, h, 0)
	assert.True(t, errors.Is(err, ErrGap))

	_, err = Align([]model.SeriesPoint{{Time: day(12, 15), Value: 1}}, h, 0)
	assert.True(t, errors.Is(err, ErrGap), "starts after the horizon")

	_, err = Align([]model.SeriesPoint{{Time: day(12, 0), Value: 1}}, h, time.Hour)
	assert.True(t, errors.Is(err, ErrGap), "stale value")

	got, err := Align([]model.SeriesPoint{{Time: day(12, 0), Value: 1}}, h, 0)
	require.NoError(t, err)
	assert.Len(t, got, 9)
}
