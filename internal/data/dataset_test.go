package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	h, err := clock.NewHorizon(day(12, 0), day(12, 45))
	require.NoError(t, err)

	fs := Files{
		PV:         writeFile(t, dir, "pv.csv", "Time,kW\n2022-07-01 12:00:00,10\n2022-07-01 12:15:00,20\n2022-07-01 12:30:00,30\n2022-07-01 12:45:00,40\n"),
		PriceScale: 0.001,
		Comma:      ';',
	}
	fs.Prices[model.DayAhead] = writeFile(t, dir, "da.csv", "Time;Price\n2022-07-01 12:00:00;100\n")
	fs.Prices[model.IntradayAuction] = writeFile(t, dir, "ia.csv", "Time;Price\n2022-07-01 12:00:00;110\n2022-07-01 12:30:00;130\n")
	fs.Prices[model.IntradayContinuous] = writeFile(t, dir, "ic.csv", "Time;Price\n2022-07-01 12:00:00;120\n")

	ds, err := LoadDataset(fs, h, NewSeriesCache(0))
	require.NoError(t, err)
	assert.Nil(t, ds.Load)
	assert.Equal(t, []float64{10, 20, 30, 40}, ds.PV)
	assert.InDeltaSlice(t, []float64{0.1, 0.1, 0.1, 0.1}, ds.Prices[model.DayAhead], 1e-12)
	assert.InDeltaSlice(t, []float64{0.11, 0.11, 0.13, 0.13}, ds.Prices[model.IntradayAuction], 1e-12)

	fs.Prices[model.DayAhead] = ""
	_, err = LoadDataset(fs, h, nil)
	assert.Error(t, err)
}

func TestListDatasets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.csv", "x")
	writeFile(t, dir, "a.json", "{}")
	writeFile(t, dir, "notes.md", "x")

	got, err := ListDatasets(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "json", got[0].Format)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, int64(1), got[1].Size)
}

func TestSynthetic(t *testing.T) {
	h, err := clock.NewHorizon(day(0, 0), day(23, 45))
	require.NoError(t, err)
	p := SyntheticParams{Noise: 0.1, Seed: 7}

	a := Synthetic(h, p)
	b := Synthetic(h, p)
	assert.Equal(t, a, b, "deterministic for a seed")
	require.Len(t, a.PV, 96)

	assert.Zero(t, a.PV[0], "no sun at midnight")
	assert.Greater(t, a.PV[13*4], 250.0)
	for _, m := range model.Markets {
		for _, v := range a.Prices[m] {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}
	assert.Equal(t, 50.0, a.Load[10])
}
