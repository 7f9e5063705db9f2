package data

import (
	"errors"
	"fmt"
	"time"

	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/model"
)

var ErrGap = errors.New("series does not cover the horizon")

// Align maps sorted points onto the ticks of h. Each tick takes the last
// point at or before it, so hourly data is held for four ticks. A point older
// than maxAge relative to the tick is a gap (maxAge <= 0 disables the check).
func Align(pts []model.SeriesPoint, h clock.Horizon, maxAge time.Duration) ([]float64, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrGap)
	}
	if pts[0].Time.After(h.Start) {
		return nil, fmt.Errorf("%w: first point %s after start %s", ErrGap,
			pts[0].Time.Format(time.RFC3339), h.Start.Format(time.RFC3339))
	}
	out := make([]float64, h.Len())
	j := 0
	for i := range out {
		ts := h.Time(clock.Tick(i))
		for j+1 < len(pts) && !pts[j+1].Time.After(ts) {
			j++
		}
		if maxAge > 0 && ts.Sub(pts[j].Time) > maxAge {
			return nil, fmt.Errorf("%w: no point within %s of %s", ErrGap, maxAge, ts.Format(time.RFC3339))
		}
		out[i] = pts[j].Value
	}
	return out, nil
}
