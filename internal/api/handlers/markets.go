package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prosumer-backtest/internal/api/models"
	"prosumer-backtest/internal/backtest"
	"prosumer-backtest/internal/market"
	"prosumer-backtest/internal/model"
)

// MarketHandler describes the market trading windows
type MarketHandler struct {
	rules *market.Eligibility
}

func NewMarketHandler(rules *market.Eligibility) *MarketHandler {
	return &MarketHandler{rules: rules}
}

// ListMarkets handles GET /api/v1/markets
func (h *MarketHandler) ListMarkets(c *gin.Context) {
	markets := make([]models.MarketInfo, 0, model.NumMarkets)
	for _, m := range model.Markets {
		r := h.rules.Rule(m)
		info := models.MarketInfo{
			Code:    m.String(),
			Name:    m.Name(),
			MinLead: r.MinLead,
		}
		if r.Closure != nil {
			info.Closure = r.Closure.String()
			info.BlockStart = h.rules.BlockStart(m)
			info.BlockEnd = info.BlockStart + backtest.BlockLen - 1
		}
		markets = append(markets, info)
	}
	c.JSON(http.StatusOK, gin.H{
		"markets":       markets,
		"max_lookahead": backtest.MaxLookahead(h.rules),
	})
}

// ListPlanners handles GET /api/v1/planners
func ListPlanners(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"planners": []gin.H{
		{
			"name":        "greedy",
			"description": "Covers deficits from the battery then the grid and sells surpluses on the best market once it is about to close.",
			"parameters":  []string{"min_offer", "on_reject", "settlement", "price_smoothing", "price_profile", "volatility"},
		},
		{
			"name":        "self_consumption",
			"description": "Baseline without trading. Surpluses charge the battery and spill to the grid.",
			"parameters":  []string{},
		},
	}})
}
