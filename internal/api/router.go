// Package api exposes simulations over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prosumer-backtest/internal/api/handlers"
	"prosumer-backtest/internal/api/middleware"
	"prosumer-backtest/internal/data"
	"prosumer-backtest/internal/market"
	"prosumer-backtest/internal/store"
)

// Options configures the router.
type Options struct {
	DataDir     string
	BatteryDir  string
	CORSOrigins string
	Cache       *data.SeriesCache
	Recorder    store.Recorder
	Rules       *market.Eligibility
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(opts Options) (*gin.Engine, error) {
	if opts.Rules == nil {
		rules, err := market.NewEligibility(market.DefaultRules())
		if err != nil {
			return nil, err
		}
		opts.Rules = rules
	}

	router := gin.New()
	router.Use(middleware.CORS(opts.CORSOrigins))
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	simulateHandler := handlers.NewSimulateHandler(opts.DataDir, opts.BatteryDir, opts.Cache, opts.Recorder)
	batteryHandler := handlers.NewBatteryHandler(opts.BatteryDir)
	datasetHandler := handlers.NewDatasetHandler(opts.DataDir)
	rankHandler := handlers.NewRankHandler(opts.DataDir, opts.Cache)
	marketHandler := handlers.NewMarketHandler(opts.Rules)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/simulate", simulateHandler.Simulate)
		api.POST("/simulate/compare", simulateHandler.Compare)
		api.GET("/runs", simulateHandler.ListRuns)
		api.GET("/runs/:id/violations", simulateHandler.RunViolations)

		api.GET("/markets", marketHandler.ListMarkets)
		api.GET("/planners", handlers.ListPlanners)
		api.GET("/batteries", batteryHandler.ListBatteries)
		api.GET("/datasets", datasetHandler.ListDatasets)
		api.GET("/rank", rankHandler.RankMarkets)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router, nil
}
