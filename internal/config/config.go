package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"prosumer-backtest/internal/backtest"
	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/contract"
	"prosumer-backtest/internal/data"
	"prosumer-backtest/internal/forecast"
	"prosumer-backtest/internal/household"
	"prosumer-backtest/internal/market"
	"prosumer-backtest/internal/model"
	"prosumer-backtest/internal/strategy"
)

// Config is the on-disk scenario shape (YAML).
type Config struct {
	Scenario ScenarioConfig `yaml:"scenario"`
	// Optional: load battery limits from a separate YAML preset.
	// If both BatteryFile and Battery are provided, Battery overrides BatteryFile.
	BatteryFile string        `yaml:"battery_file"`
	Battery     BatteryConfig `yaml:"battery"`
	Markets     MarketsConfig `yaml:"markets"`
	Grid        GridConfig    `yaml:"grid"`
	PV          PVConfig      `yaml:"pv"`
	Prices      PriceConfig   `yaml:"prices"`
	Planner     PlannerConfig `yaml:"planner"`
	Data        DataConfig    `yaml:"data"`
	Output      OutputConfig  `yaml:"output"`
}

type ScenarioConfig struct {
	Name     string `yaml:"name"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Timezone string `yaml:"timezone"`
}

type BatteryConfig struct {
	Name    string  `yaml:"name"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Initial float64 `yaml:"initial"`
}

type MarketsConfig struct {
	DayAheadClosure        string  `yaml:"day_ahead_closure"`
	IntradayAuctionClosure string  `yaml:"intraday_auction_closure"`
	ContinuousMinLead      int     `yaml:"continuous_min_lead"`
	MinOffer               float64 `yaml:"min_offer"`
}

type GridConfig struct {
	Residential float64 `yaml:"residential"`
	FeedIn      float64 `yaml:"feed_in"`
}

// PVConfig scales the PV series from the reference system it was measured
// on to the simulated installation.
type PVConfig struct {
	RatedPower     float64 `yaml:"rated_power"`
	ReferencePower float64 `yaml:"reference_power"`
}

type PriceConfig struct {
	Smoothing  float64          `yaml:"smoothing"`
	Profile    string           `yaml:"profile"`
	Volatility VolatilityConfig `yaml:"volatility"`
}

type VolatilityConfig struct {
	DA float64 `yaml:"da"`
	IA float64 `yaml:"ia"`
	IC float64 `yaml:"ic"`
}

type PlannerConfig struct {
	Name         string `yaml:"name"`
	BufferLength int    `yaml:"buffer_length"`
	OnReject     string `yaml:"on_reject"`
	Settlement   string `yaml:"settlement"`
}

// DataConfig names the scenario inputs. Relative paths resolve against Dir.
// Synthetic replaces all files by a generated dataset.
type DataConfig struct {
	Dir          string           `yaml:"dir"`
	Load         string           `yaml:"load"`
	ConstantLoad float64          `yaml:"constant_load"`
	PV           string           `yaml:"pv"`
	Prices       PriceFilesConfig `yaml:"prices"`
	PriceScale   float64          `yaml:"price_scale"`
	Comma        string           `yaml:"comma"`
	Synthetic    bool             `yaml:"synthetic"`
	Seed         int64            `yaml:"seed"`
}

type PriceFilesConfig struct {
	DA string `yaml:"da"`
	IA string `yaml:"ia"`
	IC string `yaml:"ic"`
}

type OutputConfig struct {
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
	// ForceStore persists every run, not only runs with violations.
	ForceStore bool `yaml:"force_store"`
}

// Planner names accepted by BuildPlanner.
const (
	PlannerGreedy          = "greedy"
	PlannerSelfConsumption = "self_consumption"
)

const timeLayout = "2006-01-02T15:04"

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c.BatteryFile != "" {
		loaded, err := loadBatteryFile(resolveNear(path, c.BatteryFile))
		if err != nil {
			return nil, err
		}
		c.Battery = MergeBattery(loaded, c.Battery)
	}
	if c.Data.Dir != "" && !filepath.IsAbs(c.Data.Dir) {
		c.Data.Dir = resolveNear(path, c.Data.Dir)
	}
	c.applyEnv()
	return &c, nil
}

// resolveNear prefers p relative to the config file directory and falls
// back to p relative to cwd if that doesn't exist.
func resolveNear(cfgPath, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(filepath.Dir(cfgPath), p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SCENARIO_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Output.SQLitePath = v
	}
}

// ApplyDefaults fills unset fields. Load calls it; API requests call it on
// configs built in memory.
func (c *Config) ApplyDefaults() {
	if c.Scenario.Name == "" {
		c.Scenario.Name = "scenario"
	}
	if c.Scenario.Timezone == "" {
		c.Scenario.Timezone = "UTC"
	}
	// An unset initial charge starts the battery empty.
	if c.Battery.Initial == 0 {
		c.Battery.Initial = c.Battery.Min
	}
	if c.Markets.DayAheadClosure == "" {
		c.Markets.DayAheadClosure = "12:00"
	}
	if c.Markets.IntradayAuctionClosure == "" {
		c.Markets.IntradayAuctionClosure = "16:00"
	}
	if c.Markets.ContinuousMinLead == 0 {
		c.Markets.ContinuousMinLead = 1
	}
	if c.Prices.Profile == "" {
		c.Prices.Profile = string(market.ProfileFlat)
	}
	if c.Planner.Name == "" {
		c.Planner.Name = PlannerGreedy
	}
	if c.Planner.BufferLength == 0 {
		c.Planner.BufferLength = forecast.DefaultLength
	}
	if c.Planner.OnReject == "" {
		c.Planner.OnReject = string(strategy.RejectKeep)
	}
	if c.Planner.Settlement == "" {
		c.Planner.Settlement = string(contract.SettleRealized)
	}
	if c.Data.PriceScale == 0 {
		c.Data.PriceScale = 0.001
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "results"
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if _, err := c.Horizon(); err != nil {
		return err
	}
	if err := c.Battery.ToModelParams().Validate(); err != nil {
		return fmt.Errorf("battery config invalid: %w", err)
	}
	if _, err := c.Rules(); err != nil {
		return fmt.Errorf("markets config invalid: %w", err)
	}
	if c.Markets.MinOffer < 0 {
		return errors.New("markets.min_offer must be >= 0")
	}
	if c.PV.RatedPower < 0 || c.PV.ReferencePower < 0 {
		return errors.New("pv powers must be >= 0")
	}
	if c.Prices.Smoothing < 0 || c.Prices.Smoothing >= 1 {
		return fmt.Errorf("prices.smoothing must be in [0, 1), got %v", c.Prices.Smoothing)
	}
	switch market.Profile(c.Prices.Profile) {
	case market.ProfileFlat, market.ProfileTimeOfDay:
	default:
		return fmt.Errorf("unknown price profile %q", c.Prices.Profile)
	}
	switch c.Planner.Name {
	case PlannerGreedy, PlannerSelfConsumption:
	default:
		return fmt.Errorf("unknown planner %q", c.Planner.Name)
	}
	if !strategy.RejectPolicy(c.Planner.OnReject).Valid() {
		return fmt.Errorf("unknown reject policy %q", c.Planner.OnReject)
	}
	if !contract.PriceBasis(c.Planner.Settlement).Valid() {
		return fmt.Errorf("unknown settlement price %q", c.Planner.Settlement)
	}
	if len([]rune(c.Data.Comma)) > 1 {
		return fmt.Errorf("data.comma must be a single character, got %q", c.Data.Comma)
	}
	if !c.Data.Synthetic {
		if c.Data.PV == "" {
			return errors.New("data.pv is required")
		}
		if c.Data.Prices.DA == "" || c.Data.Prices.IA == "" || c.Data.Prices.IC == "" {
			return errors.New("data.prices needs da, ia and ic files")
		}
	}
	return nil
}

// Location is the scenario time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Scenario.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Scenario.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scenario.timezone: %w", err)
	}
	return loc, nil
}

// Horizon parses the scenario start and end. Both accept RFC 3339 or
// "2006-01-02T15:04" in the scenario time zone.
func (c *Config) Horizon() (clock.Horizon, error) {
	loc, err := c.Location()
	if err != nil {
		return clock.Horizon{}, err
	}
	start, err := parseTime(c.Scenario.Start, loc)
	if err != nil {
		return clock.Horizon{}, fmt.Errorf("scenario.start: %w", err)
	}
	end, err := parseTime(c.Scenario.End, loc)
	if err != nil {
		return clock.Horizon{}, fmt.Errorf("scenario.end: %w", err)
	}
	return clock.NewHorizon(start, end)
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{timeLayout, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q", s)
}

// Rules builds the market eligibility rules.
func (c *Config) Rules() (*market.Eligibility, error) {
	rules := market.DefaultRules()
	da, err := market.ParseGateClosure(c.Markets.DayAheadClosure)
	if err != nil {
		return nil, fmt.Errorf("day_ahead_closure: %w", err)
	}
	ia, err := market.ParseGateClosure(c.Markets.IntradayAuctionClosure)
	if err != nil {
		return nil, fmt.Errorf("intraday_auction_closure: %w", err)
	}
	rules[model.DayAhead].Closure = da
	rules[model.IntradayAuction].Closure = ia
	rules[model.IntradayContinuous].MinLead = c.Markets.ContinuousMinLead
	return market.NewEligibility(rules)
}

func (c *Config) Volatility() model.PriceVector {
	v := c.Prices.Volatility
	return model.PriceVector{v.DA, v.IA, v.IC}
}

// EngineParams builds the run parameters over h.
func (c *Config) EngineParams(h clock.Horizon) backtest.Params {
	return backtest.Params{
		Horizon:         h,
		Battery:         c.Battery.ToModelParams(),
		GridResidential: c.Grid.Residential,
		GridFeedIn:      c.Grid.FeedIn,
		BufferLength:    c.Planner.BufferLength,
		Settlement:      contract.PriceBasis(c.Planner.Settlement),
		PriceSmoothing:  c.Prices.Smoothing,
		PriceProfile:    market.Profile(c.Prices.Profile),
		Volatility:      c.Volatility(),
	}
}

func (c *Config) GreedyParams() strategy.GreedyParams {
	return strategy.GreedyParams{
		Battery:         c.Battery.ToModelParams(),
		MinOffer:        c.Markets.MinOffer,
		GridResidential: c.Grid.Residential,
		OnReject:        strategy.RejectPolicy(c.Planner.OnReject),
	}
}

// BuildPlanner builds the configured planner.
func (c *Config) BuildPlanner(rules *market.Eligibility) (strategy.Planner, error) {
	switch c.Planner.Name {
	case PlannerGreedy:
		return strategy.NewGreedy(c.GreedyParams(), rules)
	case PlannerSelfConsumption:
		return strategy.NewSelfConsumption(c.Battery.ToModelParams())
	default:
		return nil, fmt.Errorf("unknown planner %q", c.Planner.Name)
	}
}

// PVScale is rated/reference power, or 1 when either is unset.
func (c *Config) PVScale() float64 {
	if c.PV.RatedPower > 0 && c.PV.ReferencePower > 0 {
		return c.PV.RatedPower / c.PV.ReferencePower
	}
	return 1
}

// HouseholdOptions adapts a dataset to the configured installation.
func (c *Config) HouseholdOptions(ds *data.Dataset) []household.Option {
	opts := []household.Option{household.WithPVScale(c.PVScale())}
	if ds.Load == nil {
		opts = append(opts, household.WithConstantLoad(c.Data.ConstantLoad))
	}
	return opts
}

// Files resolves the data file paths.
func (c *Config) Files() (data.Files, error) {
	loc, err := c.Location()
	if err != nil {
		return data.Files{}, err
	}
	fs := data.Files{
		PV:         c.dataPath(c.Data.PV),
		Load:       c.dataPath(c.Data.Load),
		PriceScale: c.Data.PriceScale,
		Location:   loc,
	}
	fs.Prices[model.DayAhead] = c.dataPath(c.Data.Prices.DA)
	fs.Prices[model.IntradayAuction] = c.dataPath(c.Data.Prices.IA)
	fs.Prices[model.IntradayContinuous] = c.dataPath(c.Data.Prices.IC)
	if r := []rune(c.Data.Comma); len(r) == 1 {
		fs.Comma = r[0]
	}
	return fs, nil
}

func (c *Config) dataPath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Data.Dir == "" {
		return p
	}
	return filepath.Join(c.Data.Dir, p)
}

// Dataset loads the scenario inputs over h, or generates them when
// data.synthetic is set. cache may be nil.
func (c *Config) Dataset(h clock.Horizon, cache *data.SeriesCache) (*data.Dataset, error) {
	if c.Data.Synthetic {
		return data.Synthetic(h, data.SyntheticParams{Load: c.Data.ConstantLoad, Seed: c.Data.Seed}), nil
	}
	fs, err := c.Files()
	if err != nil {
		return nil, err
	}
	return data.LoadDataset(fs, h, cache)
}

func (b BatteryConfig) ToModelParams() model.BatteryParams {
	return model.BatteryParams{Min: b.Min, Max: b.Max, Initial: b.Initial}
}

type batteryFileWrapper struct {
	Battery BatteryConfig `yaml:"battery"`
}

func loadBatteryFile(path string) (BatteryConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return BatteryConfig{}, err
	}
	var w batteryFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return BatteryConfig{}, err
	}
	return w.Battery, nil
}

// LoadBatteryPreset reads a battery preset file.
func LoadBatteryPreset(path string) (BatteryConfig, error) {
	return loadBatteryFile(path)
}

// MergeBattery overlays non-zero fields from override onto base.
// This is used when loading a battery file and then applying overrides from the request.
func MergeBattery(base, override BatteryConfig) BatteryConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	// Note: min and initial may legitimately be 0, in which case the preset wins.
	if override.Min != 0 {
		out.Min = override.Min
	}
	if override.Max != 0 {
		out.Max = override.Max
	}
	if override.Initial != 0 {
		out.Initial = override.Initial
	}
	return out
}
