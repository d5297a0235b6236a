package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/abcgaming/loyalty-engine/internal/loyalty"
	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/abcgaming/loyalty-engine/internal/services"
	"github.com/abcgaming/loyalty-engine/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ExportHandler struct {
	datasets        *services.DatasetService
	exportService   *services.ExportService
	leaderboardSize int
}

func NewExportHandler(datasets *services.DatasetService, leaderboardSize int) *ExportHandler {
	return &ExportHandler{
		datasets:        datasets,
		exportService:   services.NewExportService(),
		leaderboardSize: leaderboardSize,
	}
}

// ExportDataset streams a loyalty or bonus report as a file download
func (h *ExportHandler) ExportDataset(c *gin.Context) {
	dataset, ok := findReadyDataset(c, h.datasets)
	if !ok {
		return
	}
	period, ok := periodParam(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", services.ExportFormatXLSX)
	if format != services.ExportFormatXLSX && format != services.ExportFormatCSV {
		utils.SendValidationError(c, "Invalid format", "Use xlsx or csv")
		return
	}

	var (
		file *services.ExportFile
		err  error
	)
	report := c.DefaultQuery("report", services.ReportLoyalty)
	switch report {
	case services.ReportLoyalty:
		file, err = h.loyaltyFile(c, dataset, period, format)
	case services.ReportBonus:
		file, err = h.bonusFile(c, dataset, period, format)
	default:
		utils.SendValidationError(c, "Invalid report", "Use loyalty or bonus")
		return
	}
	if err != nil {
		if c.Writer.Written() {
			return
		}
		utils.SendError(c, http.StatusInternalServerError,
			utils.NewAppError(utils.ErrCodeExport, "Failed to generate report", err.Error()))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *ExportHandler) loyaltyFile(c *gin.Context, dataset *models.Dataset, period, format string) (*services.ExportFile, error) {
	ctx := c.Request.Context()

	scores, err := h.datasets.Scores(ctx, dataset, period)
	if err != nil {
		return nil, err
	}

	entries, err := h.datasets.Leaderboard(ctx, dataset, period)
	if err != nil {
		return nil, err
	}
	entries = loyalty.Top(entries, h.leaderboardSize)

	return h.exportService.LoyaltyReport(scores, entries, format)
}

func (h *ExportHandler) bonusFile(c *gin.Context, dataset *models.Dataset, period, format string) (*services.ExportFile, error) {
	ctx := c.Request.Context()

	var (
		run *models.BonusRun
		err error
	)
	if runID := c.Query("run_id"); runID != "" {
		run, err = h.datasets.GetBonusRun(ctx, dataset.ID, runID)
	} else {
		run, err = h.latestBonusRun(c, dataset, period)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) && !c.Writer.Written() {
			utils.SendNotFound(c, "No bonus run to export")
		}
		return nil, err
	}

	return h.exportService.BonusReport(run, format)
}

func (h *ExportHandler) latestBonusRun(c *gin.Context, dataset *models.Dataset, period string) (*models.BonusRun, error) {
	ctx := c.Request.Context()

	runs, err := h.datasets.ListBonusRuns(ctx, dataset.ID)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].Period == period {
			return h.datasets.GetBonusRun(ctx, dataset.ID, runs[i].PublicID)
		}
	}

	utils.SendNotFound(c, "No bonus run for this period, run the distribution first")
	return nil, gorm.ErrRecordNotFound
}
