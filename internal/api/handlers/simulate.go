package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"prosumer-backtest/internal/api/models"
	"prosumer-backtest/internal/backtest"
	"prosumer-backtest/internal/clock"
	"prosumer-backtest/internal/config"
	"prosumer-backtest/internal/data"
	"prosumer-backtest/internal/household"
	"prosumer-backtest/internal/market"
	"prosumer-backtest/internal/model"
	"prosumer-backtest/internal/store"
)

// maxCompareVariations bounds the work of one compare request.
const maxCompareVariations = 16

// SimulateHandler handles simulation requests
type SimulateHandler struct {
	dataDir    string
	batteryDir string
	cache      *data.SeriesCache
	recorder   store.Recorder
	batchLimit int
}

// NewSimulateHandler creates a new simulate handler. rec may be nil.
func NewSimulateHandler(dataDir, batteryDir string, cache *data.SeriesCache, rec store.Recorder) *SimulateHandler {
	if rec == nil {
		rec = store.NewNoopRecorder()
	}
	return &SimulateHandler{
		dataDir:    dataDir,
		batteryDir: batteryDir,
		cache:      cache,
		recorder:   rec,
		batchLimit: 4,
	}
}

// Simulate handles POST /api/v1/simulate
func (h *SimulateHandler) Simulate(c *gin.Context) {
	var req models.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	cfg, err := h.buildConfig(req.Scenario)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return
	}
	hz, ds, ok := h.loadInputs(c, cfg)
	if !ok {
		return
	}
	job, err := cfg.Job(hz, ds)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return
	}

	res, err := job.Engine.Run(c.Request.Context(), job.Source, job.Oracle, job.Planner)
	if err != nil {
		respondRunError(c, err)
		return
	}

	resp := models.SimulateResponse{
		ID:      uuid.NewString(),
		Status:  "completed",
		Summary: buildSummary(res, hz),
	}
	if res.ViolationCount() > 0 {
		resp.Status = "completed_with_violations"
		resp.Violations = convertViolations(res.Violations)
	}
	if req.Options.IncludeTicks {
		resp.Ticks = convertTicks(res.Ticks)
	}
	if req.Options.IncludeActions {
		resp.Actions = convertActions(res.Actions)
	}

	storedID, err := store.RecordIfNeeded(c.Request.Context(), h.recorder, cfg.Scenario.Name, res, req.Options.Store)
	if err != nil {
		// The run itself succeeded; report it anyway.
		log.Printf("SimulateHandler: store run: %v", err)
	}
	resp.StoredRunID = storedID

	c.JSON(http.StatusOK, resp)
}

// Compare handles POST /api/v1/simulate/compare
func (h *SimulateHandler) Compare(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}
	if len(req.Variations) > maxCompareVariations {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST",
			fmt.Errorf("at most %d variations per request", maxCompareVariations))
		return
	}

	base, err := h.buildConfig(req.Base)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return
	}
	// Variations only touch planning parameters, so the inputs are loaded once.
	hz, ds, ok := h.loadInputs(c, base)
	if !ok {
		return
	}

	jobs := make([]backtest.Job, 0, len(req.Variations))
	for _, v := range req.Variations {
		cfg := applyVariation(*base, v)
		if err := cfg.Validate(); err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_CONFIG", fmt.Errorf("variation %s: %w", v.Name, err))
			return
		}
		job, err := cfg.Job(hz, ds)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_CONFIG", fmt.Errorf("variation %s: %w", v.Name, err))
			return
		}
		job.Name = v.Name
		jobs = append(jobs, job)
	}

	results, err := backtest.RunBatch(c.Request.Context(), jobs, h.batchLimit)
	if err != nil {
		respondRunError(c, err)
		return
	}

	resp := models.CompareResponse{ID: uuid.NewString()}
	for i, res := range results {
		resp.Comparison = append(resp.Comparison, models.ComparisonResult{
			Name:    jobs[i].Name,
			Summary: buildSummary(res, hz),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// ListRuns handles GET /api/v1/runs
func (h *SimulateHandler) ListRuns(c *gin.Context) {
	runs, err := h.recorder.Runs(c.Request.Context(), 50)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// RunViolations handles GET /api/v1/runs/:id/violations
func (h *SimulateHandler) RunViolations(c *gin.Context) {
	rows, err := h.recorder.Violations(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"violations": convertViolations(rows)})
}

func (h *SimulateHandler) loadInputs(c *gin.Context, cfg *config.Config) (clock.Horizon, *data.Dataset, bool) {
	hz, err := cfg.Horizon()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return clock.Horizon{}, nil, false
	}
	ds, err := cfg.Dataset(hz, h.cache)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusNotFound
		}
		respondError(c, status, "DATA_LOAD_ERROR", err)
		return clock.Horizon{}, nil, false
	}
	return hz, ds, true
}

// buildConfig turns a request into a validated scenario configuration.
func (h *SimulateHandler) buildConfig(req models.ScenarioRequest) (*config.Config, error) {
	cfg := &config.Config{
		Scenario: config.ScenarioConfig{Name: req.Name, Start: req.Start, End: req.End, Timezone: req.Timezone},
		Battery: config.BatteryConfig{
			Name:    req.Battery.Name,
			Min:     req.Battery.Min,
			Max:     req.Battery.Max,
			Initial: req.Battery.Initial,
		},
		Markets: config.MarketsConfig{
			DayAheadClosure:        req.DayAheadClosure,
			IntradayAuctionClosure: req.AuctionClosure,
			ContinuousMinLead:      req.ContinuousMinLead,
			MinOffer:               req.MinOffer,
		},
		Grid: config.GridConfig{Residential: req.GridResidential, FeedIn: req.GridFeedIn},
		PV:   config.PVConfig{RatedPower: req.PVRatedPower, ReferencePower: req.PVReferencePower},
		Prices: config.PriceConfig{
			Smoothing: req.PriceSmoothing,
			Profile:   req.PriceProfile,
			Volatility: config.VolatilityConfig{
				DA: req.Volatility.DA,
				IA: req.Volatility.IA,
				IC: req.Volatility.IC,
			},
		},
		Planner: config.PlannerConfig{
			Name:         req.Planner,
			BufferLength: req.BufferLength,
			OnReject:     req.OnReject,
			Settlement:   req.Settlement,
		},
		Data: config.DataConfig{
			Dir:          h.dataDir,
			Synthetic:    req.Data.Synthetic,
			Seed:         req.Data.Seed,
			ConstantLoad: req.Data.ConstantLoad,
			PriceScale:   req.Data.PriceScale,
			Comma:        req.Data.Comma,
		},
	}

	files := []struct {
		dst *string
		src string
	}{
		{&cfg.Data.Load, req.Data.Load},
		{&cfg.Data.PV, req.Data.PV},
		{&cfg.Data.Prices.DA, req.Data.PricesDA},
		{&cfg.Data.Prices.IA, req.Data.PricesIA},
		{&cfg.Data.Prices.IC, req.Data.PricesIC},
	}
	for _, f := range files {
		if f.src == "" {
			continue
		}
		if err := checkRelative(f.src); err != nil {
			return nil, err
		}
		*f.dst = f.src
	}

	if req.BatteryFile != "" {
		if err := checkRelative(req.BatteryFile); err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(req.BatteryFile, ".yaml")
		preset, err := config.LoadBatteryPreset(filepath.Join(h.batteryDir, id+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("battery preset %s: %w", id, err)
		}
		cfg.Battery = config.MergeBattery(preset, cfg.Battery)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkRelative keeps request paths inside the server directories.
func checkRelative(p string) error {
	if filepath.IsAbs(p) || strings.Contains(p, "..") {
		return fmt.Errorf("path %q must be relative to the data directory", p)
	}
	return nil
}

func applyVariation(base config.Config, v models.Variation) *config.Config {
	out := base
	out.Scenario.Name = v.Name
	if v.Planner != "" {
		out.Planner.Name = v.Planner
	}
	if v.OnReject != "" {
		out.Planner.OnReject = v.OnReject
	}
	if v.Settlement != "" {
		out.Planner.Settlement = v.Settlement
	}
	if v.MinOffer != 0 {
		out.Markets.MinOffer = v.MinOffer
	}
	out.Battery = config.MergeBattery(base.Battery, config.BatteryConfig{
		Name:    v.Battery.Name,
		Min:     v.Battery.Min,
		Max:     v.Battery.Max,
		Initial: v.Battery.Initial,
	})
	return &out
}

func respondRunError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusRequestTimeout, "CANCELED", err)
	case errors.Is(err, household.ErrExhausted), errors.Is(err, market.ErrExhausted):
		respondError(c, http.StatusUnprocessableEntity, "DATA_GAP", err)
	case errors.Is(err, backtest.ErrHorizonTooShort):
		respondError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
	default:
		log.Printf("SimulateHandler: run failed: %v", err)
		respondError(c, http.StatusInternalServerError, "SIMULATION_ERROR", err)
	}
}

func respondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}

func buildSummary(res *backtest.Result, hz clock.Horizon) models.RunSummary {
	gains := make(map[string]float64, model.NumMarkets)
	delivered := make(map[string]float64, model.NumMarkets)
	for _, m := range model.Markets {
		gains[m.String()] = res.Gains[m]
		delivered[m.String()] = res.Delivered[m]
	}
	return models.RunSummary{
		Planner:        res.Planner,
		Window:         models.TimeWindow{Start: hz.Start, End: hz.End},
		TotalTicks:     len(res.Ticks),
		Gains:          gains,
		Delivered:      delivered,
		GridFeedIn:     res.GridFeedIn,
		GridCost:       res.GridCost,
		Total:          res.Total,
		SettledTotal:   res.SettledTotal(),
		Offers:         res.Offers,
		Rejections:     res.Rejections,
		ViolationCount: res.ViolationCount(),
		FinalBattery:   res.FinalBattery,
		OpenContracts:  res.OpenContracts,
	}
}

func convertTicks(rows []backtest.TickRow) []models.TickRow {
	out := make([]models.TickRow, len(rows))
	for i, r := range rows {
		out[i] = models.TickRow{
			Index:      r.Index,
			Time:       r.Time,
			Battery:    r.Battery,
			PV:         r.PV,
			Load:       r.Load,
			Charge:     r.Charge,
			Discharge:  r.Discharge,
			GridDemand: r.GridDemand,
			GridSupply: r.GridSupply,
			Delivered:  r.Delivered,
			Action:     string(r.Action),
			Total:      r.Total,
		}
	}
	return out
}

func convertActions(rows []backtest.ActionRow) []models.ActionRow {
	out := make([]models.ActionRow, len(rows))
	for i, r := range rows {
		out[i] = models.ActionRow{
			Time:     r.Time,
			Kind:     string(r.Kind),
			Market:   r.Market.String(),
			Delivery: r.Delivery,
			Price:    r.Price,
			Quantity: r.Quantity,
		}
	}
	return out
}

func convertViolations(rows []backtest.ViolationRow) []models.ViolationRow {
	out := make([]models.ViolationRow, len(rows))
	for i, r := range rows {
		out[i] = models.ViolationRow{Time: r.Time, Text: r.Text}
	}
	return out
}
