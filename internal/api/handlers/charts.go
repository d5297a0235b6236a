package handlers

import (
	"strconv"

	"github.com/abcgaming/loyalty-engine/internal/services"
	"github.com/abcgaming/loyalty-engine/pkg/utils"
	"github.com/gin-gonic/gin"
)

type ChartHandler struct {
	datasets *services.DatasetService
}

func NewChartHandler(datasets *services.DatasetService) *ChartHandler {
	return &ChartHandler{datasets: datasets}
}

// GetPointsHistogram returns the loyalty point distribution buckets
func (h *ChartHandler) GetPointsHistogram(c *gin.Context) {
	dataset, ok := findReadyDataset(c, h.datasets)
	if !ok {
		return
	}
	period, ok := periodParam(c)
	if !ok {
		return
	}

	bins, err := h.datasets.PointsHistogram(c.Request.Context(), dataset, period)
	if err != nil {
		utils.SendInternalError(c, "Failed to build histogram")
		return
	}

	utils.SendSuccess(c, gin.H{
		"dataset_id": dataset.PublicID,
		"period":     period,
		"bins":       bins,
	})
}

// GetTopPlayers returns the bar chart series for the highest scorers
func (h *ChartHandler) GetTopPlayers(c *gin.Context) {
	dataset, ok := findReadyDataset(c, h.datasets)
	if !ok {
		return
	}
	period, ok := periodParam(c)
	if !ok {
		return
	}

	n, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if n < 1 {
		n = 20
	}
	if n > 50 {
		n = 50
	}

	series, err := h.datasets.TopPlayersChart(c.Request.Context(), dataset, period, n)
	if err != nil {
		utils.SendInternalError(c, "Failed to build top players chart")
		return
	}

	utils.SendSuccess(c, gin.H{
		"dataset_id": dataset.PublicID,
		"period":     period,
		"series":     series,
	})
}

// GetCorrelation returns the metric correlation matrix
func (h *ChartHandler) GetCorrelation(c *gin.Context) {
	dataset, ok := findReadyDataset(c, h.datasets)
	if !ok {
		return
	}
	period, ok := periodParam(c)
	if !ok {
		return
	}

	matrix, err := h.datasets.CorrelationMatrix(c.Request.Context(), dataset, period)
	if err != nil {
		utils.SendInternalError(c, "Failed to compute correlations")
		return
	}

	utils.SendSuccess(c, matrix)
}
