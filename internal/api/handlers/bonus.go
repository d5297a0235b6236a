package handlers

import (
	"errors"

	"github.com/abcgaming/loyalty-engine/internal/loyalty"
	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/abcgaming/loyalty-engine/internal/services"
	"github.com/abcgaming/loyalty-engine/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type BonusHandler struct {
	datasets    *services.DatasetService
	defaultPool float64
}

func NewBonusHandler(datasets *services.DatasetService, defaultPool float64) *BonusHandler {
	return &BonusHandler{
		datasets:    datasets,
		defaultPool: defaultPool,
	}
}

// RunBonus distributes a bonus pool over the period's top players
func (h *BonusHandler) RunBonus(c *gin.Context) {
	dataset, ok := findReadyDataset(c, h.datasets)
	if !ok {
		return
	}

	var req struct {
		Pool   float64 `json:"pool" binding:"omitempty,gt=0"`
		Method string  `json:"method" binding:"omitempty,oneof=proportional equal tiered"`
		Period string  `json:"period"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if req.Pool == 0 {
		req.Pool = h.defaultPool
	}
	if req.Method == "" {
		req.Method = models.BonusMethodProportional
	}
	if err := services.ValidatePeriod(req.Period); err != nil {
		utils.SendValidationError(c, "Invalid period", "Use YYYY-MM or omit for the whole dataset")
		return
	}

	run, err := h.datasets.RunBonus(c.Request.Context(), dataset, req.Period, req.Pool, req.Method)
	if err != nil {
		utils.SendValidationError(c, "Cannot distribute bonus", err.Error())
		return
	}

	utils.SendSuccess(c, gin.H{
		"run":      run,
		"tier_pie": loyalty.TierPie(run.Allocations),
	})
}

// GetBonusRun returns a stored bonus run with its allocations
func (h *BonusHandler) GetBonusRun(c *gin.Context) {
	dataset, ok := findDataset(c, h.datasets)
	if !ok {
		return
	}

	run, err := h.datasets.GetBonusRun(c.Request.Context(), dataset.ID, c.Param("run_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.SendNotFound(c, "Bonus run not found")
		} else {
			utils.SendInternalError(c, "Failed to fetch bonus run")
		}
		return
	}

	utils.SendSuccess(c, run)
}

// ListBonusRuns returns the dataset's bonus runs, newest first
func (h *BonusHandler) ListBonusRuns(c *gin.Context) {
	dataset, ok := findDataset(c, h.datasets)
	if !ok {
		return
	}

	runs, err := h.datasets.ListBonusRuns(c.Request.Context(), dataset.ID)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch bonus runs")
		return
	}

	utils.SendSuccess(c, runs)
}
