package models

import "time"

// SimulateResponse represents the response from a simulation run
type SimulateResponse struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	StoredRunID string         `json:"stored_run_id,omitempty"`
	Summary     RunSummary     `json:"summary"`
	Ticks       []TickRow      `json:"ticks,omitempty"`
	Actions     []ActionRow    `json:"actions,omitempty"`
	Violations  []ViolationRow `json:"violations,omitempty"`
}

// RunSummary contains aggregated run results
type RunSummary struct {
	Planner        string             `json:"planner"`
	Window         TimeWindow         `json:"window"`
	TotalTicks     int                `json:"total_ticks"`
	Gains          map[string]float64 `json:"gains"`
	Delivered      map[string]float64 `json:"delivered"`
	GridFeedIn     float64            `json:"grid_feed_in"`
	GridCost       float64            `json:"grid_cost"`
	Total          float64            `json:"total"`
	SettledTotal   float64            `json:"settled_total"`
	Offers         int                `json:"offers"`
	Rejections     int                `json:"rejections"`
	ViolationCount int                `json:"violation_count"`
	FinalBattery   float64            `json:"final_battery"`
	OpenContracts  int                `json:"open_contracts"`
}

// TimeWindow represents a time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TickRow represents one tick of the run log
type TickRow struct {
	Index      int       `json:"index"`
	Time       time.Time `json:"time"`
	Battery    float64   `json:"battery"`
	PV         float64   `json:"pv"`
	Load       float64   `json:"load"`
	Charge     float64   `json:"charge"`
	Discharge  float64   `json:"discharge"`
	GridDemand float64   `json:"grid_demand"`
	GridSupply float64   `json:"grid_supply"`
	Delivered  float64   `json:"delivered"`
	Action     string    `json:"action"` // "CHARGING", "DISCHARGING", "IDLE"
	Total      float64   `json:"total"`
}

// ActionRow represents one contract event
type ActionRow struct {
	Time     time.Time `json:"time"`
	Kind     string    `json:"kind"` // "placed", "rejected", "settled"
	Market   string    `json:"market"`
	Delivery time.Time `json:"delivery"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
}

type ViolationRow struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// CompareResponse represents the response from a comparison
type CompareResponse struct {
	ID         string             `json:"id"`
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation
type ComparisonResult struct {
	Name    string     `json:"name"`
	Summary RunSummary `json:"summary"`
}

// RankResponse represents the response from ranking markets
type RankResponse struct {
	Rankings []Ranking `json:"rankings"`
}

// Ranking represents one ranked market
type Ranking struct {
	Rank         int     `json:"rank"`
	Market       string  `json:"market"`
	Name         string  `json:"name"`
	Count        int     `json:"count"`
	Mean         float64 `json:"mean"`
	P05          float64 `json:"p05"`
	P95          float64 `json:"p95"`
	SpreadP95P05 float64 `json:"spread_p95_p05"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	AboveGrid    int     `json:"above_grid"`
	OracleProfit float64 `json:"oracle_profit"`
}

// MarketInfo describes the trading window of one market
type MarketInfo struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Closure    string `json:"closure,omitempty"` // HH:MM, empty for continuous trading
	MinLead    int    `json:"min_lead"`
	BlockStart int    `json:"block_start,omitempty"`
	BlockEnd   int    `json:"block_end,omitempty"`
}

// BatteryInfo represents information about a battery preset
type BatteryInfo struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	File  string       `json:"file"`
	Specs BatterySpecs `json:"specs"`
}

// BatterySpecs contains battery limits in kWh
type BatterySpecs struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Capacity float64 `json:"capacity"`
}

// DatasetInfo represents one series file in the data directory
type DatasetInfo struct {
	ID     string `json:"id"`
	File   string `json:"file"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
