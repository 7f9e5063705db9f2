package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"prosumer-backtest/internal/analysis"
	"prosumer-backtest/internal/api/models"
	"prosumer-backtest/internal/config"
	"prosumer-backtest/internal/data"
	"prosumer-backtest/internal/model"
)

// RankHandler handles ranking-related requests
type RankHandler struct {
	dataDir string
	cache   *data.SeriesCache
}

// NewRankHandler creates a new rank handler
func NewRankHandler(dataDir string, cache *data.SeriesCache) *RankHandler {
	return &RankHandler{dataDir: dataDir, cache: cache}
}

// RankMarkets handles GET /api/v1/rank
func (h *RankHandler) RankMarkets(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	cfg := &config.Config{
		Scenario: config.ScenarioConfig{Start: req.Start, End: req.End, Timezone: req.Timezone},
		Data: config.DataConfig{
			Dir:        h.dataDir,
			Synthetic:  req.Synthetic,
			Seed:       req.Seed,
			PriceScale: req.PriceScale,
			Prices:     config.PriceFilesConfig{DA: req.PricesDA, IA: req.PricesIA, IC: req.PricesIC},
		},
	}
	cfg.ApplyDefaults()
	if !req.Synthetic {
		for _, p := range []string{req.PricesDA, req.PricesIA, req.PricesIC} {
			if p == "" {
				respondError(c, http.StatusBadRequest, "MISSING_PARAM", errors.New("prices_da, prices_ia and prices_ic are required"))
				return
			}
			if err := checkRelative(p); err != nil {
				respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
				return
			}
		}
	}

	hz, err := cfg.Horizon()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_DATE", err)
		return
	}

	var prices [model.NumMarkets][]float64
	if req.Synthetic {
		prices = data.Synthetic(hz, data.SyntheticParams{Seed: req.Seed}).Prices
	} else {
		fs, err := cfg.Files()
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
			return
		}
		for _, m := range model.Markets {
			pts, err := h.cache.Load(fs.Prices[m], data.SeriesOptions{Scale: fs.PriceScale, Location: fs.Location})
			if err != nil {
				status := http.StatusBadRequest
				if errors.Is(err, os.ErrNotExist) {
					status = http.StatusNotFound
				}
				respondError(c, status, "DATA_LOAD_ERROR", err)
				return
			}
			if prices[m], err = data.Align(pts, hz, data.MaxAge); err != nil {
				respondError(c, http.StatusBadRequest, "DATA_GAP", err)
				return
			}
		}
	}

	ranked := analysis.RankMarkets(hz, prices, req.GridResidential)
	resp := models.RankResponse{Rankings: make([]models.Ranking, len(ranked))}
	for i, r := range ranked {
		resp.Rankings[i] = models.Ranking{
			Rank:         i + 1,
			Market:       r.Market.String(),
			Name:         r.Market.Name(),
			Count:        r.Count,
			Mean:         r.Mean,
			P05:          r.P05,
			P95:          r.P95,
			SpreadP95P05: r.SpreadP95P05,
			Min:          r.Min,
			Max:          r.Max,
			AboveGrid:    r.AboveGrid,
			OracleProfit: r.OracleProfit,
		}
	}
	c.JSON(http.StatusOK, resp)
}
