package model

import "time"

// SeriesPoint is one timestamped sample of a price, load or PV series.
type SeriesPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// SeriesFile matches the JSON shape accepted for series inputs.
//
// Example:
//
//	{
//	  "name": "intraday_continuous",
//	  "unit": "EUR/MWh",
//	  "data": [{"time": "2022-07-01T12:00:00+02:00", "value": 212.5}, ...]
//	}
type SeriesFile struct {
	Name string        `json:"name"`
	Unit string        `json:"unit"`
	Data []SeriesPoint `json:"data"`
}
