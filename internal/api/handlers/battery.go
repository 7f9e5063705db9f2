package handlers

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"prosumer-backtest/internal/api/models"
	"prosumer-backtest/internal/config"
)

// BatteryHandler handles battery-related requests
type BatteryHandler struct {
	batteryDir string
}

// NewBatteryHandler creates a new battery handler reading presets from dir
func NewBatteryHandler(dir string) *BatteryHandler {
	// Convert to absolute path for reliability
	if absDir, err := filepath.Abs(dir); err == nil {
		dir = absDir
	}
	log.Printf("BatteryHandler: Using battery directory: %s", dir)
	return &BatteryHandler{batteryDir: dir}
}

// ListBatteries handles GET /api/v1/batteries
func (h *BatteryHandler) ListBatteries(c *gin.Context) {
	batteries := []models.BatteryInfo{}

	entries, err := os.ReadDir(h.batteryDir)
	if err != nil {
		// A missing preset directory is not an error for clients.
		log.Printf("BatteryHandler: Failed to read battery directory %s: %v", h.batteryDir, err)
		c.JSON(http.StatusOK, gin.H{"batteries": batteries})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(h.batteryDir, entry.Name())
		info, err := h.loadBatteryInfo(path, entry.Name())
		if err != nil {
			log.Printf("BatteryHandler: Failed to load battery file %s: %v", path, err)
			continue // Skip invalid files
		}
		batteries = append(batteries, *info)
	}

	c.JSON(http.StatusOK, gin.H{"batteries": batteries})
}

func (h *BatteryHandler) loadBatteryInfo(path, filename string) (*models.BatteryInfo, error) {
	b, err := config.LoadBatteryPreset(path)
	if err != nil {
		return nil, err
	}
	if err := b.ToModelParams().Validate(); err != nil {
		return nil, err
	}

	// The file name without extension is the id used by battery_file.
	id := strings.TrimSuffix(filename, ".yaml")
	name := b.Name
	if name == "" {
		name = id
	}

	p := b.ToModelParams()
	return &models.BatteryInfo{
		ID:   id,
		Name: name,
		File: path,
		Specs: models.BatterySpecs{
			Min:      p.Min,
			Max:      p.Max,
			Capacity: p.Capacity(),
		},
	}, nil
}
