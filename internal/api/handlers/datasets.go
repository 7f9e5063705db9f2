package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"prosumer-backtest/internal/api/models"
	"prosumer-backtest/internal/data"
)

// DatasetHandler lists the series files available to scenarios
type DatasetHandler struct {
	dataDir string
}

func NewDatasetHandler(dataDir string) *DatasetHandler {
	return &DatasetHandler{dataDir: dataDir}
}

// ListDatasets handles GET /api/v1/datasets
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	found, err := data.ListDatasets(h.dataDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "DATASETS_LOAD_ERROR",
				Message: fmt.Sprintf("Failed to list datasets: %v", err),
			},
		})
		return
	}

	datasets := make([]models.DatasetInfo, len(found))
	for i, d := range found {
		datasets[i] = models.DatasetInfo{
			ID:     d.ID,
			File:   d.ID + "." + d.Format,
			Format: d.Format,
			Size:   d.Size,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"datasets": datasets,
		"count":    len(datasets),
	})
}
