package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

// Files names the inputs of one scenario. An empty Load means the scenario
// uses a constant load.
type Files struct {
	Load   string
	PV     string
	Prices [model.NumMarkets]string

	// PriceScale converts prices to money per energy unit, e.g. 0.001 for
	// EUR/MWh into EUR/kWh.
	PriceScale float64
	// Comma is the CSV separator of the price files.
	Comma    rune
	Location *time.Location
}

// Dataset is a scenario's input aligned onto the simulation ticks.
type Dataset struct {
	Load   []float64
	PV     []float64
	Prices [model.NumMarkets][]float64
}

// MaxAge bounds how long a value is held when filling forward. Day-ahead
// prices are hourly.
const MaxAge = time.Hour

// LoadDataset reads and aligns every file of fs onto h. cache may be nil.
func LoadDataset(fs Files, h clock.Horizon, cache *SeriesCache) (*Dataset, error) {
	if fs.PV == "" {
		return nil, errors.New("pv series path is required")
	}
	scale := fs.PriceScale
	if scale == 0 {
		scale = 1
	}
	ds := &Dataset{}
	var err error
	base := SeriesOptions{Location: fs.Location}
	if ds.PV, err = loadAligned(cache, fs.PV, base, h); err != nil {
		return nil, fmt.Errorf("pv: %w", err)
	}
	if fs.Load != "" {
		if ds.Load, err = loadAligned(cache, fs.Load, base, h); err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
	}
	for _, m := range model.Markets {
		if fs.Prices[m] == "" {
			return nil, fmt.Errorf("%s price series path is required", m.Name())
		}
		opts := SeriesOptions{Comma: fs.Comma, Scale: scale, Location: fs.Location}
		if ds.Prices[m], err = loadAligned(cache, fs.Prices[m], opts, h); err != nil {
			return nil, fmt.Errorf("%s prices: %w", m, err)
		}
	}
	return ds, nil
}

func loadAligned(cache *SeriesCache, path string, opts SeriesOptions, h clock.Horizon) ([]float64, error) {
	pts, err := cache.Load(path, opts)
	if err != nil {
		return nil, err
	}
	return Align(pts, h, MaxAge)
}

// DatasetInfo describes a series file found in a data directory.
type DatasetInfo struct {
	ID     string
	Path   string
	Format string
	Size   int64
}

// ListDatasets returns the .csv and .json files directly under dir, sorted by name.
func ListDatasets(dir string) ([]DatasetInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []DatasetInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".csv" && ext != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, DatasetInfo{
			ID:     strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Path:   filepath.Join(dir, e.Name()),
			Format: strings.TrimPrefix(ext, "."),
			Size:   info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
