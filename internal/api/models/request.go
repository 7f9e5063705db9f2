package models

// SimulateRequest represents the request body for running one household scenario
type SimulateRequest struct {
	Scenario ScenarioRequest `json:"scenario" binding:"required"`
	Options  SimulateOptions `json:"options,omitempty"`
}

// ScenarioRequest mirrors the YAML scenario file
type ScenarioRequest struct {
	Name     string `json:"name,omitempty"`
	Start    string `json:"start" binding:"required"` // RFC 3339 or YYYY-MM-DDTHH:MM
	End      string `json:"end" binding:"required"`
	Timezone string `json:"timezone,omitempty"` // default: UTC

	BatteryFile string        `json:"battery_file,omitempty"` // preset id under the battery directory
	Battery     BatteryConfig `json:"battery,omitempty"`

	MinOffer          float64 `json:"min_offer,omitempty"`
	DayAheadClosure   string  `json:"day_ahead_closure,omitempty"`
	AuctionClosure    string  `json:"intraday_auction_closure,omitempty"`
	ContinuousMinLead int     `json:"continuous_min_lead,omitempty"`

	GridResidential float64 `json:"grid_residential"`
	GridFeedIn      float64 `json:"grid_feed_in"`

	PVRatedPower     float64 `json:"pv_rated_power,omitempty"`
	PVReferencePower float64 `json:"pv_reference_power,omitempty"`

	PriceSmoothing float64         `json:"price_smoothing,omitempty"`
	PriceProfile   string          `json:"price_profile,omitempty"` // "flat" or "time_of_day"
	Volatility     VolatilityInput `json:"volatility,omitempty"`

	Planner      string `json:"planner,omitempty"`   // "greedy" or "self_consumption"
	OnReject     string `json:"on_reject,omitempty"` // "keep" or "drop"
	Settlement   string `json:"settlement,omitempty"`
	BufferLength int    `json:"buffer_length,omitempty"`

	Data DataSourceConfig `json:"data"`
}

// BatteryConfig defines battery limits in kWh
type BatteryConfig struct {
	Name    string  `json:"name,omitempty"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Initial float64 `json:"initial,omitempty"`
}

type VolatilityInput struct {
	DA float64 `json:"da"`
	IA float64 `json:"ia"`
	IC float64 `json:"ic"`
}

// DataSourceConfig names series files in the server data directory, or asks
// for a generated dataset
type DataSourceConfig struct {
	Synthetic    bool    `json:"synthetic,omitempty"`
	Seed         int64   `json:"seed,omitempty"`
	Load         string  `json:"load,omitempty"`
	ConstantLoad float64 `json:"constant_load,omitempty"`
	PV           string  `json:"pv,omitempty"`
	PricesDA     string  `json:"prices_da,omitempty"`
	PricesIA     string  `json:"prices_ia,omitempty"`
	PricesIC     string  `json:"prices_ic,omitempty"`
	PriceScale   float64 `json:"price_scale,omitempty"`
	Comma        string  `json:"comma,omitempty"`
}

// SimulateOptions contains optional output switches
type SimulateOptions struct {
	IncludeTicks   bool `json:"include_ticks,omitempty"`
	IncludeActions bool `json:"include_actions,omitempty"`
	// Store persists the run even without violations.
	Store bool `json:"store,omitempty"`
}

// CompareRequest runs variations of one base scenario side by side
type CompareRequest struct {
	Base       ScenarioRequest `json:"base" binding:"required"`
	Variations []Variation     `json:"variations" binding:"required,min=1"`
}

// Variation overrides parts of the base scenario. Zero fields keep the base value.
type Variation struct {
	Name       string        `json:"name" binding:"required"`
	Planner    string        `json:"planner,omitempty"`
	OnReject   string        `json:"on_reject,omitempty"`
	Settlement string        `json:"settlement,omitempty"`
	MinOffer   float64       `json:"min_offer,omitempty"`
	Battery    BatteryConfig `json:"battery,omitempty"`
}

// RankRequest represents a request to rank the markets of one price dataset
type RankRequest struct {
	Start           string  `form:"start" binding:"required"`
	End             string  `form:"end" binding:"required"`
	Timezone        string  `form:"timezone,omitempty"`
	Synthetic       bool    `form:"synthetic,omitempty"`
	Seed            int64   `form:"seed,omitempty"`
	PricesDA        string  `form:"prices_da,omitempty"`
	PricesIA        string  `form:"prices_ia,omitempty"`
	PricesIC        string  `form:"prices_ic,omitempty"`
	PriceScale      float64 `form:"price_scale,omitempty"`
	GridResidential float64 `form:"grid_residential,omitempty"`
}
