package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abcgaming/loyalty-engine/internal/ingest"
	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/abcgaming/loyalty-engine/internal/services"
	"github.com/abcgaming/loyalty-engine/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DatasetHandler struct {
	datasets       *services.DatasetService
	maxUploadBytes int64
}

func NewDatasetHandler(datasets *services.DatasetService, maxUploadBytes int64) *DatasetHandler {
	return &DatasetHandler{
		datasets:       datasets,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadDataset accepts a player activity file and runs the ingest pipeline
func (h *DatasetHandler) UploadDataset(c *gin.Context) {
	// Reject oversized uploads before reading the body
	if c.Request.ContentLength > h.maxUploadBytes {
		utils.SendTooLarge(c, "File exceeds the 200MB upload limit")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.SendTooLarge(c, "File exceeds the 200MB upload limit")
			return
		}
		utils.SendValidationError(c, "Upload must include a 'file' form field", err.Error())
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		utils.SendTooLarge(c, "File exceeds the 200MB upload limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.SendInternalError(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	dataset, err := h.datasets.Ingest(c.Request.Context(), fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		h.sendIngestError(c, err)
		return
	}

	utils.SendSuccess(c, dataset)
}

// ListDatasets returns uploaded datasets, newest first
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	datasets, total, err := h.datasets.List(c.Request.Context(), page, perPage)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch datasets")
		return
	}

	utils.SendSuccessWithMeta(c, datasets, pageMeta(page, perPage, total))
}

// GetDataset returns a single dataset with its ingest summary
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	dataset, ok := findDataset(c, h.datasets)
	if !ok {
		return
	}
	utils.SendSuccess(c, dataset)
}

// DeleteDataset removes a dataset and everything derived from it
func (h *DatasetHandler) DeleteDataset(c *gin.Context) {
	dataset, ok := findDataset(c, h.datasets)
	if !ok {
		return
	}

	if err := h.datasets.Delete(c.Request.Context(), dataset); err != nil {
		utils.SendInternalError(c, "Failed to delete dataset")
		return
	}

	utils.SendSuccess(c, gin.H{"deleted": dataset.PublicID})
}

// GetRecords returns a dataset's activity records with optional filters
func (h *DatasetHandler) GetRecords(c *gin.Context) {
	dataset, ok := findReadyDataset(c, h.datasets)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "50"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 500 {
		perPage = 50
	}

	filter := services.RecordFilter{
		PlayerID: c.Query("player_id"),
		GameType: c.Query("game_type"),
		Slot:     c.Query("slot"),
	}
	if from := c.Query("from"); from != "" {
		t, err := parseTimeParam(from)
		if err != nil {
			utils.SendValidationError(c, "Invalid 'from' timestamp", "Use RFC3339 or YYYY-MM-DD")
			return
		}
		filter.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := parseTimeParam(to)
		if err != nil {
			utils.SendValidationError(c, "Invalid 'to' timestamp", "Use RFC3339 or YYYY-MM-DD")
			return
		}
		filter.To = t
	}

	records, total, err := h.datasets.Records(c.Request.Context(), dataset.ID, filter, page, perPage)
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch records")
		return
	}

	utils.SendSuccessWithMeta(c, records, pageMeta(page, perPage, total))
}

func (h *DatasetHandler) sendIngestError(c *gin.Context, err error) {
	var (
		unsupported *ingest.UnsupportedFormatError
		missing     *ingest.MissingColumnsError
	)

	switch {
	case errors.As(err, &unsupported):
		utils.SendError(c, http.StatusBadRequest, utils.NewAppError(
			utils.ErrCodeUnsupportedFormat, "Unsupported file format", unsupported.Error()))
	case errors.As(err, &missing):
		utils.SendError(c, http.StatusBadRequest, utils.NewAppError(
			utils.ErrCodeMissingColumns, "Required columns are missing", strings.Join(missing.Columns, ", ")))
	case errors.Is(err, ingest.ErrNoValidRows):
		utils.SendError(c, http.StatusBadRequest, utils.NewAppError(
			utils.ErrCodeEmptyDataset, "File contains no valid rows"))
	default:
		utils.SendInternalError(c, "Failed to process uploaded file")
	}
}

// Helper functions shared by the dataset-scoped handlers

func findDataset(c *gin.Context, svc *services.DatasetService) (*models.Dataset, bool) {
	publicID := c.Param("id")
	dataset, err := svc.GetByPublicID(c.Request.Context(), publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.SendNotFound(c, "Dataset not found")
		} else {
			utils.SendInternalError(c, "Failed to fetch dataset")
		}
		return nil, false
	}
	return dataset, true
}

func findReadyDataset(c *gin.Context, svc *services.DatasetService) (*models.Dataset, bool) {
	dataset, ok := findDataset(c, svc)
	if !ok {
		return nil, false
	}
	if dataset.Status != models.DatasetStatusReady {
		utils.SendConflict(c, "Dataset is not ready, current status: "+dataset.Status)
		return nil, false
	}
	return dataset, true
}

func pageMeta(page, perPage int, total int64) *utils.Meta {
	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}
	return &utils.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

func parseTimeParam(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
