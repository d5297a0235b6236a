package handlers

import (
	"errors"
	"strconv"

	"github.com/abcgaming/loyalty-engine/internal/loyalty"
	"github.com/abcgaming/loyalty-engine/internal/services"
	"github.com/abcgaming/loyalty-engine/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ScoreHandler struct {
	datasets     *services.DatasetService
	defaultLimit int
}

const maxLeaderboardLimit = 500

func NewScoreHandler(datasets *services.DatasetService, defaultLimit int) *ScoreHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &ScoreHandler{datasets: datasets, defaultLimit: defaultLimit}
}

// ComputeScores recomputes loyalty points for a dataset period
func (h *ScoreHandler) ComputeScores(c *gin.Context) {
	dataset, ok := findReadyDataset(c, h.datasets)
	if !ok {
		return
	}
	period, ok := periodParam(c)
	if !ok {
		return
	}

	scores, err := h.datasets.ComputeScores(c.Request.Context(), dataset, period)
	if err != nil {
		utils.SendInternalError(c, "Failed to compute scores")
		return
	}

	utils.SendSuccess(c, gin.H{
		"dataset_id": dataset.PublicID,
		"period":     period,
		"players":    len(scores),
		"scores":     scores,
	})
}

// GetPlayerScore returns one player's point breakdown
func (h *ScoreHandler) GetPlayerScore(c *gin.Context) {
	dataset, ok := findReadyDataset(c, h.datasets)
	if !ok {
		return
	}
	period, ok := periodParam(c)
	if !ok {
		return
	}

	score, err := h.datasets.PlayerScore(c.Request.Context(), dataset, period, c.Param("player_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.SendNotFound(c, "Player not found in this dataset")
		} else {
			utils.SendInternalError(c, "Failed to fetch player score")
		}
		return
	}

	utils.SendSuccess(c, score)
}

// GetLeaderboard returns the ranked leaderboard with optional filtering.
// Filtered entries keep the rank they hold on the full board.
func (h *ScoreHandler) GetLeaderboard(c *gin.Context) {
	dataset, ok := findReadyDataset(c, h.datasets)
	if !ok {
		return
	}
	period, ok := periodParam(c)
	if !ok {
		return
	}

	entries, err := h.datasets.Leaderboard(c.Request.Context(), dataset, period)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch leaderboard")
		return
	}

	filter := loyalty.Filter{Search: c.Query("search")}
	if minPoints := c.Query("min_points"); minPoints != "" {
		v, err := strconv.ParseFloat(minPoints, 64)
		if err != nil {
			utils.SendValidationError(c, "Invalid min_points value", err.Error())
			return
		}
		filter.MinPoints = v
	}
	entries = loyalty.ApplyFilter(entries, filter)
	total := int64(len(entries))

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = h.defaultLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	if offset > len(entries) {
		offset = len(entries)
	}
	entries = entries[offset:]
	if limit < len(entries) {
		entries = entries[:limit]
	}

	page := offset/limit + 1

	utils.SendSuccessWithMeta(c, gin.H{
		"dataset_id":  dataset.PublicID,
		"period":      period,
		"leaderboard": entries,
	}, pageMeta(page, limit, total))
}

// GetMonths lists the calendar months present in the dataset
func (h *ScoreHandler) GetMonths(c *gin.Context) {
	dataset, ok := findReadyDataset(c, h.datasets)
	if !ok {
		return
	}

	months, err := h.datasets.Months(c.Request.Context(), dataset.ID)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch months")
		return
	}

	utils.SendSuccess(c, gin.H{
		"dataset_id": dataset.PublicID,
		"months":     months,
	})
}

// GetStats returns summary statistics plus game type and slot breakdowns
func (h *ScoreHandler) GetStats(c *gin.Context) {
	dataset, ok := findReadyDataset(c, h.datasets)
	if !ok {
		return
	}
	period, ok := periodParam(c)
	if !ok {
		return
	}

	stats, err := h.datasets.Stats(c.Request.Context(), dataset, period)
	if err != nil {
		utils.SendInternalError(c, "Failed to compute stats")
		return
	}

	utils.SendSuccess(c, stats)
}

// periodParam validates the optional ?period=YYYY-MM query parameter.
func periodParam(c *gin.Context) (string, bool) {
	period := c.Query("period")
	if err := services.ValidatePeriod(period); err != nil {
		utils.SendValidationError(c, "Invalid period", "Use YYYY-MM or omit for the whole dataset")
		return "", false
	}
	return period, true
}
