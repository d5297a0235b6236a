package services

import (
	"context"
	"testing"
	"time"

	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMaintenanceStartStop(t *testing.T) {
	svc := newTestService(t)
	m := NewMaintenanceService(svc, logrus.New(), 30)

	require.NoError(t, m.Start())
	assert.Error(t, m.Start(), "second start must be rejected")

	status := m.GetStatus()
	assert.Equal(t, true, status["is_running"])
	assert.Equal(t, 30, status["retention_days"])
	assert.Equal(t, 2, status["cron_jobs"])

	m.Stop()
	status = m.GetStatus()
	assert.Equal(t, false, status["is_running"])

	// stopping twice is harmless
	m.Stop()
}

func TestMaintenancePurgeExpiredDatasets(t *testing.T) {
	svc := newTestService(t)
	m := NewMaintenanceService(svc, logrus.New(), 30)

	old := ingestCSV(t, svc, "old.csv", activityCSV)
	fresh := ingestCSV(t, svc, "fresh.csv", activityCSV)

	aged := time.Now().UTC().AddDate(0, 0, -31)
	require.NoError(t, svc.db.Model(&models.Dataset{}).
		Where("id = ?", old.ID).
		Update("created_at", aged).Error)

	m.purgeExpiredDatasets()

	_, err := svc.GetByPublicID(context.Background(), old.PublicID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = svc.GetByPublicID(context.Background(), fresh.PublicID)
	assert.NoError(t, err)
}

func TestMaintenanceRetentionDisabled(t *testing.T) {
	svc := newTestService(t)
	m := NewMaintenanceService(svc, logrus.New(), 0)

	dataset := ingestCSV(t, svc, "keep.csv", activityCSV)
	aged := time.Now().UTC().AddDate(0, 0, -365)
	require.NoError(t, svc.db.Model(&models.Dataset{}).
		Where("id = ?", dataset.ID).
		Update("created_at", aged).Error)

	m.purgeExpiredDatasets()

	_, err := svc.GetByPublicID(context.Background(), dataset.PublicID)
	assert.NoError(t, err, "retention of 0 days must never delete")
}

func TestMaintenanceWarmLeaderboards(t *testing.T) {
	svc := newTestService(t)
	m := NewMaintenanceService(svc, logrus.New(), 30)

	ingestCSV(t, svc, "a.csv", activityCSV)
	ingestCSV(t, svc, "b.csv", activityCSV)

	// cache is disabled in tests, warming just exercises the read path
	m.warmLeaderboards()
}
