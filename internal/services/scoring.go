package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abcgaming/loyalty-engine/internal/loyalty"
	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ComputeScores (re)computes and stores scores for one period, replacing
// any previous run for that period, and announces the refreshed
// leaderboard.
func (s *DatasetService) ComputeScores(ctx context.Context, dataset *models.Dataset, period string) ([]models.PlayerScore, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}

	records, err := s.recordsForPeriod(ctx, dataset.ID, period)
	if err != nil {
		return nil, err
	}

	scores := s.calc.Score(records)
	for i := range scores {
		scores[i].DatasetID = dataset.ID
		scores[i].Period = period
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dataset_id = ? AND period = ?", dataset.ID, period).Delete(&models.PlayerScore{}).Error; err != nil {
			return err
		}
		if len(scores) == 0 {
			return nil
		}
		return tx.CreateInBatches(scores, 500).Error
	})
	if err != nil {
		return nil, fmt.Errorf("storing scores: %w", err)
	}

	s.invalidate(ctx, dataset.PublicID)
	s.broadcastDataset(dataset.PublicID, EventLeaderboardUpdated, map[string]interface{}{
		"dataset_id": dataset.PublicID,
		"period":     period,
		"players":    len(scores),
	})

	return scores, nil
}

// Scores returns the stored scores for a period, computing them on demand
// the first time a month is requested.
func (s *DatasetService) Scores(ctx context.Context, dataset *models.Dataset, period string) ([]models.PlayerScore, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}

	var scores []models.PlayerScore
	err := s.db.WithContext(ctx).
		Where("dataset_id = ? AND period = ?", dataset.ID, period).
		Order("player_id ASC").
		Find(&scores).Error
	if err != nil {
		return nil, err
	}

	if len(scores) == 0 && period != "" {
		return s.ComputeScores(ctx, dataset, period)
	}
	return scores, nil
}

// PlayerScore returns one player's score breakdown for a period.
func (s *DatasetService) PlayerScore(ctx context.Context, dataset *models.Dataset, period, playerID string) (*models.PlayerScore, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}

	var score models.PlayerScore
	err := s.db.WithContext(ctx).
		Where("dataset_id = ? AND period = ? AND player_id = ?", dataset.ID, period, playerID).
		First(&score).Error
	if err != nil {
		return nil, err
	}
	return &score, nil
}

// Leaderboard returns the full ranked board for a period, cache-first.
func (s *DatasetService) Leaderboard(ctx context.Context, dataset *models.Dataset, period string) ([]models.LeaderboardEntry, error) {
	key := LeaderboardCacheKey(dataset.PublicID, period)

	var entries []models.LeaderboardEntry
	if err := s.cache.Get(ctx, key, &entries); err == nil {
		return entries, nil
	} else if !errors.Is(err, ErrCacheMiss) && !errors.Is(err, ErrCacheDisabled) {
		s.logger.Debugf("Leaderboard cache read failed: %v", err)
	}

	scores, err := s.Scores(ctx, dataset, period)
	if err != nil {
		return nil, err
	}
	entries = loyalty.Rank(scores)

	if err := s.cache.SetWithRetry(ctx, key, entries, s.cache.TTL(), 3); err != nil && !errors.Is(err, ErrCacheDisabled) {
		s.logger.Debugf("Leaderboard cache write failed: %v", err)
	}
	return entries, nil
}

// Months lists the calendar months present in a dataset, ascending.
func (s *DatasetService) Months(ctx context.Context, datasetID uint) ([]string, error) {
	expr := "to_char(timestamp, 'YYYY-MM')"
	if s.db.Dialector.Name() == "sqlite" {
		expr = "strftime('%Y-%m', timestamp)"
	}

	var months []string
	err := s.db.WithContext(ctx).
		Raw(fmt.Sprintf("SELECT DISTINCT %s AS month FROM activity_records WHERE dataset_id = ? ORDER BY month", expr), datasetID).
		Scan(&months).Error
	return months, err
}

// GameTypeBreakdown aggregates records for one game type.
type GameTypeBreakdown struct {
	GameType     string  `json:"game_type"`
	Records      int64   `json:"records"`
	TotalWagered float64 `json:"total_wagered"`
	TotalWon     float64 `json:"total_won"`
}

// SlotBreakdown counts records in one time slot.
type SlotBreakdown struct {
	TimeSlot string `json:"time_slot"`
	Records  int64  `json:"records"`
}

// StatsResponse is the stats endpoint payload.
type StatsResponse struct {
	Period    string               `json:"period,omitempty"`
	Summary   loyalty.SummaryStats `json:"summary"`
	GameTypes []GameTypeBreakdown  `json:"game_types"`
	Slots     []SlotBreakdown      `json:"slots"`
}

// Stats summarizes a period: score statistics plus per-game-type and
// per-slot activity breakdowns. Cache-first.
func (s *DatasetService) Stats(ctx context.Context, dataset *models.Dataset, period string) (*StatsResponse, error) {
	key := StatsCacheKey(dataset.PublicID, period)

	var cached StatsResponse
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	scores, err := s.Scores(ctx, dataset, period)
	if err != nil {
		return nil, err
	}

	resp := &StatsResponse{
		Period:  period,
		Summary: loyalty.Stats(scores),
	}

	q, err := s.periodQuery(ctx, dataset.ID, period)
	if err != nil {
		return nil, err
	}
	err = q.Select("game_type, COUNT(*) AS records, SUM(amount_wagered) AS total_wagered, SUM(amount_won) AS total_won").
		Group("game_type").
		Order("total_wagered DESC").
		Scan(&resp.GameTypes).Error
	if err != nil {
		return nil, err
	}

	q, err = s.periodQuery(ctx, dataset.ID, period)
	if err != nil {
		return nil, err
	}
	err = q.Select("time_slot, COUNT(*) AS records").
		Group("time_slot").
		Order("time_slot ASC").
		Scan(&resp.Slots).Error
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetWithRetry(ctx, key, resp, s.cache.TTL(), 3); err != nil && !errors.Is(err, ErrCacheDisabled) {
		s.logger.Debugf("Stats cache write failed: %v", err)
	}
	return resp, nil
}

// PointsHistogram buckets a period's loyalty points for the distribution
// chart.
func (s *DatasetService) PointsHistogram(ctx context.Context, dataset *models.Dataset, period string) ([]loyalty.HistogramBin, error) {
	key := ChartCacheKey(dataset.PublicID, "histogram", period)

	var cached []loyalty.HistogramBin
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	scores, err := s.Scores(ctx, dataset, period)
	if err != nil {
		return nil, err
	}
	bins := loyalty.PointsHistogram(scores, loyalty.HistogramBins)

	if err := s.cache.SetWithRetry(ctx, key, bins, s.cache.TTL(), 3); err != nil && !errors.Is(err, ErrCacheDisabled) {
		s.logger.Debugf("Histogram cache write failed: %v", err)
	}
	return bins, nil
}

// TopPlayersChart is the top-n bar series for a period.
func (s *DatasetService) TopPlayersChart(ctx context.Context, dataset *models.Dataset, period string, n int) (loyalty.BarSeries, error) {
	entries, err := s.Leaderboard(ctx, dataset, period)
	if err != nil {
		return loyalty.BarSeries{}, err
	}
	return loyalty.TopPlayersBar(entries, n), nil
}

// CorrelationResponse pairs the correlation matrix with its axis labels.
type CorrelationResponse struct {
	Labels []string    `json:"labels"`
	Matrix [][]float64 `json:"matrix"`
}

// CorrelationMatrix computes metric correlations for a period. Cache-first.
func (s *DatasetService) CorrelationMatrix(ctx context.Context, dataset *models.Dataset, period string) (*CorrelationResponse, error) {
	key := ChartCacheKey(dataset.PublicID, "correlation", period)

	var cached CorrelationResponse
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	scores, err := s.Scores(ctx, dataset, period)
	if err != nil {
		return nil, err
	}

	resp := &CorrelationResponse{
		Labels: loyalty.CorrelationLabels,
		Matrix: loyalty.Correlation(scores),
	}

	if err := s.cache.SetWithRetry(ctx, key, resp, s.cache.TTL(), 3); err != nil && !errors.Is(err, ErrCacheDisabled) {
		s.logger.Debugf("Correlation cache write failed: %v", err)
	}
	return resp, nil
}

// RunBonus distributes a bonus pool over the period's top players and
// persists the run.
func (s *DatasetService) RunBonus(ctx context.Context, dataset *models.Dataset, period string, pool float64, method string) (*models.BonusRun, error) {
	entries, err := s.Leaderboard(ctx, dataset, period)
	if err != nil {
		return nil, err
	}

	size := s.cfg.LeaderboardSize
	if size <= 0 {
		size = loyalty.DefaultBonusPlayers
	}
	top := loyalty.Top(entries, size)
	dist, err := loyalty.Distribute(top, pool, method)
	if err != nil {
		return nil, err
	}

	run := &models.BonusRun{
		PublicID:       uuid.New().String(),
		DatasetID:      dataset.ID,
		Period:         period,
		Method:         method,
		Pool:           pool,
		PlayerCount:    len(dist.Allocations),
		TotalAllocated: dist.TotalAllocated,
	}
	if len(dist.TierTotals) > 0 {
		if b, err := json.Marshal(dist.TierTotals); err == nil {
			run.TierTotals = datatypes.JSON(b)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		allocs := dist.Allocations
		for i := range allocs {
			allocs[i].RunID = run.ID
		}
		return tx.CreateInBatches(allocs, 500).Error
	})
	if err != nil {
		return nil, fmt.Errorf("storing bonus run: %w", err)
	}
	run.Allocations = dist.Allocations

	s.broadcastDataset(dataset.PublicID, EventBonusUpdated, map[string]interface{}{
		"dataset_id": dataset.PublicID,
		"run_id":     run.PublicID,
		"method":     run.Method,
		"pool":       run.Pool,
		"players":    run.PlayerCount,
	})
	if err := s.notifier.BonusComputed(run); err != nil {
		s.logger.Warnf("Bonus notification failed: %v", err)
	}

	return run, nil
}

// GetBonusRun fetches a stored bonus run with its allocations.
func (s *DatasetService) GetBonusRun(ctx context.Context, datasetID uint, publicID string) (*models.BonusRun, error) {
	var run models.BonusRun
	err := s.db.WithContext(ctx).
		Preload("Allocations", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("rank ASC")
		}).
		Where("dataset_id = ? AND public_id = ?", datasetID, publicID).
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListBonusRuns returns a dataset's bonus runs, newest first, without
// allocations.
func (s *DatasetService) ListBonusRuns(ctx context.Context, datasetID uint) ([]models.BonusRun, error) {
	var runs []models.BonusRun
	err := s.db.WithContext(ctx).
		Where("dataset_id = ?", datasetID).
		Order("created_at DESC, id DESC").
		Find(&runs).Error
	return runs, err
}

func (s *DatasetService) recordsForPeriod(ctx context.Context, datasetID uint, period string) ([]models.ActivityRecord, error) {
	q, err := s.periodQuery(ctx, datasetID, period)
	if err != nil {
		return nil, err
	}

	var records []models.ActivityRecord
	err = q.Order("id ASC").Find(&records).Error
	return records, err
}

func (s *DatasetService) periodQuery(ctx context.Context, datasetID uint, period string) (*gorm.DB, error) {
	q := s.db.WithContext(ctx).Model(&models.ActivityRecord{}).Where("dataset_id = ?", datasetID)
	if period != "" {
		start, err := time.Parse("2006-01", period)
		if err != nil {
			return nil, ErrInvalidPeriod
		}
		q = q.Where("timestamp >= ? AND timestamp < ?", start, start.AddDate(0, 1, 0))
	}
	return q, nil
}
