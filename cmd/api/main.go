package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"prosumer-backtest/internal/api"
	"prosumer-backtest/internal/data"
	"prosumer-backtest/internal/store"
)

func main() {
	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	dataDir := os.Getenv("SCENARIO_DATA_DIR")
	if dataDir == "" {
		dataDir = "./examples/data"
	}
	batteryDir := os.Getenv("BATTERY_DIR")
	if batteryDir == "" {
		batteryDir = "./examples/batteries"
	}

	var rec store.Recorder = store.NewNoopRecorder()
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		sqlite, err := store.NewSQLiteRecorder(path)
		if err != nil {
			log.Fatalf("Failed to open run store: %v", err)
		}
		defer sqlite.Close()
		rec = sqlite
	} else {
		log.Printf("SQLITE_PATH not set, runs are not stored")
	}

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := api.NewRouter(api.Options{
		DataDir:     dataDir,
		BatteryDir:  batteryDir,
		CORSOrigins: os.Getenv("CORS_ORIGINS"),
		Cache:       data.GetCache(),
		Recorder:    rec,
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	addr := fmt.Sprintf(":%s", port)
	log.Printf("Starting API server on %s (data %s, batteries %s)", addr, dataDir, batteryDir)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
