package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abcgaming/loyalty-engine/internal/ingest"
	"github.com/abcgaming/loyalty-engine/internal/loyalty"
	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/abcgaming/loyalty-engine/pkg/config"
	"github.com/abcgaming/loyalty-engine/pkg/database"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatasetService owns the upload pipeline and everything derived from a
// dataset: records, scores, leaderboards, stats and bonus runs.
type DatasetService struct {
	db       *database.DB
	cache    *CacheService
	hub      *WebSocketHub
	notifier Notifier
	calc     *loyalty.Calculator
	cfg      *config.Config
	logger   *logrus.Logger
}

func NewDatasetService(db *database.DB, cache *CacheService, hub *WebSocketHub, notifier Notifier, cfg *config.Config) *DatasetService {
	return &DatasetService{
		db:       db,
		cache:    cache,
		hub:      hub,
		notifier: notifier,
		calc: loyalty.NewCalculator(loyalty.Weights{
			WagerRate:     cfg.WagerPointsRate,
			WinRate:       cfg.WinPointsRate,
			FrequencyRate: cfg.FrequencyPointsRate,
			GamesRate:     cfg.GamesPointsRate,
		}),
		cfg:    cfg,
		logger: logrus.StandardLogger(),
	}
}

// Ingest runs the full upload pipeline: parse and validate the file, store
// its records and compute the whole-dataset scores. Parse failures are
// recorded on the dataset row and returned to the caller.
func (s *DatasetService) Ingest(ctx context.Context, filename string, size int64, file io.ReadSeeker) (*models.Dataset, error) {
	format, err := ingest.DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	dataset := &models.Dataset{
		PublicID:   uuid.New().String(),
		Filename:   filename,
		Format:     format,
		SizeBytes:  size,
		Status:     models.DatasetStatusProcessing,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(dataset).Error; err != nil {
		return nil, fmt.Errorf("creating dataset: %w", err)
	}

	s.broadcastDataset(dataset.PublicID, EventDatasetProcessing, map[string]interface{}{
		"dataset_id": dataset.PublicID,
		"filename":   dataset.Filename,
		"percent":    0,
	})

	result, err := ingest.Parse(file, format)
	if err != nil {
		s.markFailed(ctx, dataset, err)
		return nil, err
	}

	records := ingest.RecordsFromRows(dataset.ID, result.Rows)
	if err := s.insertRecords(ctx, records); err != nil {
		s.markFailed(ctx, dataset, err)
		return nil, fmt.Errorf("storing records: %w", err)
	}

	s.broadcastDataset(dataset.PublicID, EventDatasetProcessing, map[string]interface{}{
		"dataset_id": dataset.PublicID,
		"filename":   dataset.Filename,
		"percent":    80,
	})

	scores := s.calc.Score(records)
	for i := range scores {
		scores[i].DatasetID = dataset.ID
	}
	if len(scores) > 0 {
		if err := s.db.WithContext(ctx).CreateInBatches(scores, 500).Error; err != nil {
			s.markFailed(ctx, dataset, err)
			return nil, fmt.Errorf("storing scores: %w", err)
		}
	}

	srcCols, err := json.Marshal(result.SourceColumns)
	if err != nil {
		srcCols = []byte("[]")
	}

	dataset.Status = models.DatasetStatusReady
	dataset.RowCount = len(result.Rows)
	dataset.PlayerCount = len(scores)
	dataset.DuplicatesDropped = result.DuplicatesDropped
	dataset.SourceColumns = datatypes.JSON(srcCols)
	dataset.Summary = result.Summary
	if err := s.db.WithContext(ctx).Save(dataset).Error; err != nil {
		return nil, fmt.Errorf("finalizing dataset: %w", err)
	}

	s.invalidate(ctx, dataset.PublicID)
	s.broadcastDataset(dataset.PublicID, EventDatasetReady, map[string]interface{}{
		"dataset_id":   dataset.PublicID,
		"filename":     dataset.Filename,
		"row_count":    dataset.RowCount,
		"player_count": dataset.PlayerCount,
	})
	if err := s.notifier.DatasetReady(dataset); err != nil {
		s.logger.Warnf("Dataset ready notification failed: %v", err)
	}

	s.logger.WithFields(logrus.Fields{
		"dataset_id": dataset.PublicID,
		"rows":       dataset.RowCount,
		"players":    dataset.PlayerCount,
		"skipped":    result.Summary.SkippedRows,
		"duplicates": dataset.DuplicatesDropped,
	}).Info("Dataset ingested")

	return dataset, nil
}

func (s *DatasetService) markFailed(ctx context.Context, dataset *models.Dataset, cause error) {
	dataset.Status = models.DatasetStatusFailed
	dataset.FailureReason = cause.Error()
	if err := s.db.WithContext(ctx).Save(dataset).Error; err != nil {
		s.logger.Errorf("Failed to record dataset failure: %v", err)
	}

	s.broadcastDataset(dataset.PublicID, EventDatasetFailed, map[string]interface{}{
		"dataset_id": dataset.PublicID,
		"filename":   dataset.Filename,
		"reason":     cause.Error(),
	})
	if err := s.notifier.DatasetFailed(dataset.Filename, cause.Error()); err != nil {
		s.logger.Warnf("Dataset failure notification failed: %v", err)
	}
}

// insertRecords writes records in batches across a small worker pool.
func (s *DatasetService) insertRecords(ctx context.Context, records []models.ActivityRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := s.cfg.InsertBatchSize
	if batch <= 0 {
		batch = 1000
	}
	workers := s.cfg.InsertWorkers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(records); start += batch {
		chunk := records[start:min(start+batch, len(records))]
		g.Go(func() error {
			return s.db.WithContext(gctx).Create(&chunk).Error
		})
	}
	return g.Wait()
}

// GetByPublicID fetches a dataset by its public UUID.
func (s *DatasetService) GetByPublicID(ctx context.Context, publicID string) (*models.Dataset, error) {
	var dataset models.Dataset
	err := s.db.WithContext(ctx).Where("public_id = ?", publicID).First(&dataset).Error
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

// List returns datasets newest-first with the total count for pagination.
func (s *DatasetService) List(ctx context.Context, page, perPage int) ([]models.Dataset, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Dataset{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var datasets []models.Dataset
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&datasets).Error
	return datasets, total, err
}

// RecordFilter narrows a dataset's records.
type RecordFilter struct {
	PlayerID string
	GameType string
	Slot     string
	From     time.Time
	To       time.Time
}

// Records returns a page of a dataset's activity records.
func (s *DatasetService) Records(ctx context.Context, datasetID uint, filter RecordFilter, page, perPage int) ([]models.ActivityRecord, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.ActivityRecord{}).Where("dataset_id = ?", datasetID)
	if filter.PlayerID != "" {
		q = q.Where("player_id = ?", filter.PlayerID)
	}
	if filter.GameType != "" {
		q = q.Where("game_type = ?", strings.ToLower(filter.GameType))
	}
	if filter.Slot != "" {
		q = q.Where("time_slot = ?", filter.Slot)
	}
	if !filter.From.IsZero() {
		q = q.Where("timestamp >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("timestamp < ?", filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.ActivityRecord
	err := q.Order("timestamp ASC, id ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&records).Error
	return records, total, err
}

// Delete removes a dataset and everything derived from it.
func (s *DatasetService) Delete(ctx context.Context, dataset *models.Dataset) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		runIDs := tx.Model(&models.BonusRun{}).Select("id").Where("dataset_id = ?", dataset.ID)
		if err := tx.Where("run_id IN (?)", runIDs).Delete(&models.BonusAllocation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("dataset_id = ?", dataset.ID).Delete(&models.BonusRun{}).Error; err != nil {
			return err
		}
		if err := tx.Where("dataset_id = ?", dataset.ID).Delete(&models.PlayerScore{}).Error; err != nil {
			return err
		}
		if err := tx.Where("dataset_id = ?", dataset.ID).Delete(&models.ActivityRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(dataset).Error
	})
	if err != nil {
		return fmt.Errorf("deleting dataset: %w", err)
	}

	s.invalidate(ctx, dataset.PublicID)
	s.logger.WithField("dataset_id", dataset.PublicID).Info("Dataset deleted")
	return nil
}

// PurgeOlderThan deletes datasets uploaded before the cutoff and reports
// how many were removed.
func (s *DatasetService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var stale []models.Dataset
	if err := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Find(&stale).Error; err != nil {
		return 0, err
	}

	purged := 0
	for i := range stale {
		if err := s.Delete(ctx, &stale[i]); err != nil {
			s.logger.Errorf("Retention sweep failed for dataset %s: %v", stale[i].PublicID, err)
			continue
		}
		purged++
	}
	return purged, nil
}

func (s *DatasetService) invalidate(ctx context.Context, publicID string) {
	if err := s.cache.DeleteByPrefix(ctx, DatasetCachePrefix(publicID)); err != nil {
		s.logger.Debugf("Cache invalidation failed: %v", err)
	}
}

func (s *DatasetService) broadcastDataset(publicID, event string, payload interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.BroadcastToTopic(TopicDatasets, event, payload); err != nil {
		s.logger.Debugf("Broadcast to %s failed: %v", TopicDatasets, err)
	}
	if err := s.hub.BroadcastToTopic(DatasetTopic(publicID), event, payload); err != nil {
		s.logger.Debugf("Broadcast to %s failed: %v", DatasetTopic(publicID), err)
	}
}

// ErrInvalidPeriod rejects period keys that are not "" or "YYYY-MM".
var ErrInvalidPeriod = errors.New("period must be empty or formatted YYYY-MM")

// ValidatePeriod checks a period key before it reaches a query.
func ValidatePeriod(period string) error {
	if period == "" {
		return nil
	}
	if _, err := time.Parse("2006-01", period); err != nil {
		return ErrInvalidPeriod
	}
	return nil
}
