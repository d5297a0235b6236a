package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// MaintenanceService runs the scheduled background jobs: nightly dataset
// retention sweeps and periodic cache warming for ready datasets.
type MaintenanceService struct {
	datasets      *DatasetService
	logger        *logrus.Logger
	cron          *cron.Cron
	mu            sync.Mutex
	isRunning     bool
	retentionDays int
	warmInterval  time.Duration
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(datasets *DatasetService, logger *logrus.Logger, retentionDays int) *MaintenanceService {
	return &MaintenanceService{
		datasets:      datasets,
		logger:        logger,
		cron:          cron.New(),
		retentionDays: retentionDays,
		warmInterval:  15 * time.Minute,
	}
}

// Start schedules the background jobs
func (s *MaintenanceService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("maintenance service is already running")
	}

	// Nightly retention sweep
	_, err := s.cron.AddFunc("0 3 * * *", s.purgeExpiredDatasets) // 3 AM daily
	if err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	schedule := fmt.Sprintf("@every %s", s.warmInterval.String())
	_, err = s.cron.AddFunc(schedule, s.warmLeaderboards)
	if err != nil {
		return fmt.Errorf("failed to schedule cache warming: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	s.logger.Info("Maintenance service started")
	return nil
}

// Stop halts the scheduled jobs, waiting for any in-flight run
func (s *MaintenanceService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Maintenance service stopped")
}

// purgeExpiredDatasets deletes datasets past the retention window
func (s *MaintenanceService) purgeExpiredDatasets() {
	if s.retentionDays <= 0 {
		return
	}

	s.logger.Info("Starting dataset retention sweep")

	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	purged, err := s.datasets.PurgeOlderThan(context.Background(), cutoff)
	if err != nil {
		s.logger.Errorf("Retention sweep failed: %v", err)
		return
	}

	s.logger.Infof("Retention sweep removed %d datasets older than %s", purged, cutoff.Format("2006-01-02"))
}

// warmLeaderboards refreshes the leaderboard cache for recent ready datasets
func (s *MaintenanceService) warmLeaderboards() {
	ctx := context.Background()

	var datasets []models.Dataset
	err := s.datasets.db.WithContext(ctx).
		Where("status = ?", models.DatasetStatusReady).
		Order("created_at DESC").
		Limit(5).
		Find(&datasets).Error
	if err != nil {
		s.logger.Errorf("Cache warming failed to list datasets: %v", err)
		return
	}

	for i := range datasets {
		if _, err := s.datasets.Leaderboard(ctx, &datasets[i], ""); err != nil {
			s.logger.Warnf("Cache warming failed for dataset %s: %v", datasets[i].PublicID, err)
		}
	}
}

// GetStatus returns the current scheduler state
func (s *MaintenanceService) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	nextRuns := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		nextRuns = append(nextRuns, entry.Next)
	}

	return map[string]interface{}{
		"is_running":     s.isRunning,
		"retention_days": s.retentionDays,
		"next_runs":      nextRuns,
		"cron_jobs":      len(entries),
	}
}
