package data

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"prosumer-backtest/internal/model"
)

// SeriesOptions control how a series file is read.
type SeriesOptions struct {
	// Comma is the CSV field separator; ',' when zero.
	Comma rune
	// Column picks the value column of a CSV file. Empty means the first
	// column that is not the time column.
	Column string
	// Scale multiplies every value; 1 when zero.
	Scale float64
	// Location is used for timestamps without a zone; UTC when nil.
	Location *time.Location
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// LoadSeries reads a time series from a .json (SeriesFile) or .csv file and
// returns its points sorted by time.
func LoadSeries(path string, opts SeriesOptions) ([]model.SeriesPoint, error) {
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	var (
		pts []model.SeriesPoint
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		pts, err = loadSeriesJSON(path)
	case ".csv", ".txt":
		pts, err = loadSeriesCSV(path, opts)
	default:
		return nil, fmt.Errorf("%s: unsupported series format", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i := range pts {
		pts[i].Value *= opts.Scale
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Time.Before(pts[j].Time) })
	return pts, nil
}

func loadSeriesJSON(path string) ([]model.SeriesPoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f model.SeriesFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if len(f.Data) == 0 {
		return nil, errors.New("no data in series file")
	}
	return f.Data, nil
}

func loadSeriesCSV(path string, opts SeriesOptions) ([]model.SeriesPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if opts.Comma != 0 {
		r.Comma = opts.Comma
	}
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	timeCol := 0
	for i, h := range header {
		if isTimeColumn(h) {
			timeCol = i
			break
		}
	}
	valueCol := -1
	for i, h := range header {
		if i == timeCol {
			continue
		}
		if opts.Column == "" || strings.EqualFold(h, opts.Column) {
			valueCol = i
			break
		}
	}
	if valueCol < 0 {
		return nil, fmt.Errorf("value column %q not found in %v", opts.Column, header)
	}

	var pts []model.SeriesPoint
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= timeCol || len(rec) <= valueCol {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(rec))
		}
		ts, err := parseTime(rec[timeCol], opts.Location)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[valueCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid value %q", line, rec[valueCol])
		}
		pts = append(pts, model.SeriesPoint{Time: ts, Value: v})
	}
	if len(pts) == 0 {
		return nil, errors.New("no rows")
	}
	return pts, nil
}

func isTimeColumn(h string) bool {
	switch strings.ToLower(h) {
	case "time", "timestamp", "datetime", "date":
		return true
	}
	return false
}
