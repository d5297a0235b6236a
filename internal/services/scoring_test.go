package services

import (
	"context"
	"testing"

	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMonths(t *testing.T) {
	svc := newTestService(t)
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	months, err := svc.Months(context.Background(), dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-06", "2026-07"}, months)
}

func TestComputeScoresForMonth(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	scores, err := svc.ComputeScores(ctx, dataset, "2026-06")
	require.NoError(t, err)
	require.Len(t, scores, 3)

	// June only: P001 wagered 100.50+50.00, the July rows are out
	assert.Equal(t, "P001", scores[0].PlayerID)
	assert.InDelta(t, 150.50, scores[0].TotalWagered, 1e-9)
	assert.Equal(t, 2, scores[0].GamesPlayed)
	assert.Equal(t, "2026-06", scores[0].Period)

	// recomputing replaces the stored rows instead of stacking them
	_, err = svc.ComputeScores(ctx, dataset, "2026-06")
	require.NoError(t, err)
	var count int64
	require.NoError(t, svc.db.Model(&models.PlayerScore{}).
		Where("dataset_id = ? AND period = ?", dataset.ID, "2026-06").
		Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestComputeScoresInvalidPeriod(t *testing.T) {
	svc := newTestService(t)
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	_, err := svc.ComputeScores(context.Background(), dataset, "06-2026")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestScoresLazyMonthComputation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	// no stored rows for the month yet
	var count int64
	require.NoError(t, svc.db.Model(&models.PlayerScore{}).
		Where("dataset_id = ? AND period = ?", dataset.ID, "2026-07").
		Count(&count).Error)
	assert.Zero(t, count)

	// first read computes and stores them
	scores, err := svc.Scores(ctx, dataset, "2026-07")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "P001", scores[0].PlayerID)
	assert.Equal(t, "P002", scores[1].PlayerID)

	require.NoError(t, svc.db.Model(&models.PlayerScore{}).
		Where("dataset_id = ? AND period = ?", dataset.ID, "2026-07").
		Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestScoresMonthWithNoActivity(t *testing.T) {
	svc := newTestService(t)
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	scores, err := svc.Scores(context.Background(), dataset, "2026-01")
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestPlayerScore(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	score, err := svc.PlayerScore(ctx, dataset, "", "P002")
	require.NoError(t, err)
	assert.Equal(t, "P002", score.PlayerID)
	assert.InDelta(t, 200.0, score.TotalWagered, 1e-9)
	assert.InDelta(t, 185.0, score.TotalWon, 1e-9)

	_, err = svc.PlayerScore(ctx, dataset, "", "P999")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLeaderboardOrdering(t *testing.T) {
	svc := newTestService(t)
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	entries, err := svc.Leaderboard(context.Background(), dataset, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].LoyaltyPoints, entries[i].LoyaltyPoints)
	}

	// P001: 225.75*0.01 + 170*0.005 + 1*0.001 + 3*0.2 = 3.7085
	assert.Equal(t, "P001", entries[0].PlayerID)
	assert.InDelta(t, 3.7085, entries[0].LoyaltyPoints, 1e-9)
}

func TestStats(t *testing.T) {
	svc := newTestService(t)
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	stats, err := svc.Stats(context.Background(), dataset, "")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Summary.Players)
	assert.InDelta(t, 455.75, stats.Summary.TotalWagered, 1e-9)
	assert.Equal(t, 6, stats.Summary.TotalGames)
	assert.Equal(t, "P001", stats.Summary.TopPlayer)

	// game types ordered by wagered total descending
	require.Len(t, stats.GameTypes, 4)
	assert.Equal(t, "blackjack", stats.GameTypes[0].GameType)
	assert.EqualValues(t, 1, stats.GameTypes[0].Records)
	assert.InDelta(t, 200.0, stats.GameTypes[0].TotalWagered, 1e-9)
	assert.Equal(t, "slots", stats.GameTypes[1].GameType)
	assert.EqualValues(t, 3, stats.GameTypes[1].Records)

	require.Len(t, stats.Slots, 2)
	assert.Equal(t, models.TimeSlotS1, stats.Slots[0].TimeSlot)
	assert.EqualValues(t, 4, stats.Slots[0].Records)
	assert.EqualValues(t, 2, stats.Slots[1].Records)
}

func TestStatsForMonth(t *testing.T) {
	svc := newTestService(t)
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	stats, err := svc.Stats(context.Background(), dataset, "2026-07")
	require.NoError(t, err)

	assert.Equal(t, "2026-07", stats.Period)
	assert.Equal(t, 2, stats.Summary.Players)
	assert.InDelta(t, 75.25, stats.Summary.TotalWagered, 1e-9)
}

func TestPointsHistogram(t *testing.T) {
	svc := newTestService(t)
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	bins, err := svc.PointsHistogram(context.Background(), dataset, "")
	require.NoError(t, err)
	require.NotEmpty(t, bins)

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 3, total)
}

func TestTopPlayersChart(t *testing.T) {
	svc := newTestService(t)
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	series, err := svc.TopPlayersChart(context.Background(), dataset, "", 2)
	require.NoError(t, err)
	require.Len(t, series.Labels, 2)
	require.Len(t, series.Values, 2)
	assert.Equal(t, "P001", series.Labels[0])
	assert.GreaterOrEqual(t, series.Values[0], series.Values[1])
}

func TestCorrelationMatrix(t *testing.T) {
	svc := newTestService(t)
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	resp, err := svc.CorrelationMatrix(context.Background(), dataset, "")
	require.NoError(t, err)

	require.Len(t, resp.Labels, 4)
	require.Len(t, resp.Matrix, 4)
	for i, row := range resp.Matrix {
		require.Len(t, row, 4)
		assert.InDelta(t, 1.0, row[i], 1e-9)
	}
}

func TestRunBonusProportional(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	run, err := svc.RunBonus(ctx, dataset, "", 1000, models.BonusMethodProportional)
	require.NoError(t, err)

	assert.NotEmpty(t, run.PublicID)
	assert.Equal(t, models.BonusMethodProportional, run.Method)
	assert.Equal(t, 3, run.PlayerCount)
	assert.InDelta(t, 1000.0, run.TotalAllocated, 1e-9)
	require.Len(t, run.Allocations, 3)

	// top-ranked player takes the largest share
	assert.Equal(t, 1, run.Allocations[0].Rank)
	assert.Greater(t, run.Allocations[0].Amount, run.Allocations[1].Amount)

	var sum float64
	for _, a := range run.Allocations {
		sum += a.Amount
	}
	assert.InDelta(t, 1000.0, sum, 1e-9)
}

func TestRunBonusTieredStoresTierTotals(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	run, err := svc.RunBonus(ctx, dataset, "", 1000, models.BonusMethodTiered)
	require.NoError(t, err)

	// only the Top 10 tier is populated with 3 players, so only its
	// share of the pool is handed out
	assert.InDelta(t, 500.0, run.TotalAllocated, 1e-9)
	for _, a := range run.Allocations {
		assert.Equal(t, models.BonusTierTop10, a.Tier)
	}
	assert.NotEmpty(t, run.TierTotals)
}

func TestRunBonusRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	_, err := svc.RunBonus(ctx, dataset, "", 0, models.BonusMethodEqual)
	assert.Error(t, err)

	_, err = svc.RunBonus(ctx, dataset, "", 1000, "lottery")
	assert.Error(t, err)
}

func TestGetBonusRun(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	created, err := svc.RunBonus(ctx, dataset, "", 500, models.BonusMethodEqual)
	require.NoError(t, err)

	fetched, err := svc.GetBonusRun(ctx, dataset.ID, created.PublicID)
	require.NoError(t, err)
	assert.Equal(t, created.PublicID, fetched.PublicID)
	require.Len(t, fetched.Allocations, 3)
	// allocations come back rank-ordered
	assert.Equal(t, 1, fetched.Allocations[0].Rank)
	assert.Equal(t, 3, fetched.Allocations[2].Rank)

	_, err = svc.GetBonusRun(ctx, dataset.ID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListBonusRuns(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	dataset := ingestCSV(t, svc, "activity.csv", activityCSV)

	_, err := svc.RunBonus(ctx, dataset, "", 100, models.BonusMethodEqual)
	require.NoError(t, err)
	second, err := svc.RunBonus(ctx, dataset, "2026-06", 200, models.BonusMethodProportional)
	require.NoError(t, err)

	runs, err := svc.ListBonusRuns(ctx, dataset.ID)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// newest first, without allocations
	assert.Equal(t, second.PublicID, runs[0].PublicID)
	assert.Equal(t, "2026-06", runs[0].Period)
	assert.Empty(t, runs[0].Allocations)
}
