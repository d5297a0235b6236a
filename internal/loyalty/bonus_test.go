package loyalty

import (
	"fmt"
	"testing"

	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func board(points ...float64) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, len(points))
	for i, p := range points {
		entries[i] = models.LeaderboardEntry{
			Rank:          i + 1,
			PlayerID:      fmt.Sprintf("P%03d", i+1),
			LoyaltyPoints: p,
		}
	}
	return entries
}

func sumAmounts(allocs []models.BonusAllocation) float64 {
	var total float64
	for _, a := range allocs {
		total += a.Amount
	}
	return total
}

func TestDistributeProportional(t *testing.T) {
	dist, err := Distribute(board(3, 1, 1), 100, models.BonusMethodProportional)
	require.NoError(t, err)

	require.Len(t, dist.Allocations, 3)
	assert.Equal(t, 60.0, dist.Allocations[0].Amount)
	assert.Equal(t, 20.0, dist.Allocations[1].Amount)
	assert.Equal(t, 20.0, dist.Allocations[2].Amount)
	assert.Equal(t, 100.0, dist.TotalAllocated)
}

func TestDistributeProportionalRoundingRemainder(t *testing.T) {
	// three equal players cannot split 100 evenly in cents; the extra cent
	// goes to rank 1
	dist, err := Distribute(board(5, 5, 5), 100, models.BonusMethodProportional)
	require.NoError(t, err)

	assert.Equal(t, 33.34, dist.Allocations[0].Amount)
	assert.Equal(t, 33.33, dist.Allocations[1].Amount)
	assert.Equal(t, 33.33, dist.Allocations[2].Amount)
	assert.InDelta(t, 100.0, sumAmounts(dist.Allocations), 1e-9)
}

func TestDistributeProportionalMonotone(t *testing.T) {
	dist, err := Distribute(board(90, 50, 50, 10, 1), 12345.67, models.BonusMethodProportional)
	require.NoError(t, err)

	for i := 1; i < len(dist.Allocations); i++ {
		assert.GreaterOrEqual(t, dist.Allocations[i-1].Amount, dist.Allocations[i].Amount)
	}
	assert.InDelta(t, 12345.67, sumAmounts(dist.Allocations), 1e-9)
}

func TestDistributeProportionalZeroPointsFallsBackToEqual(t *testing.T) {
	dist, err := Distribute(board(0, 0, 0, 0), 100, models.BonusMethodProportional)
	require.NoError(t, err)

	assert.Equal(t, 25.0, dist.Allocations[1].Amount)
	assert.Equal(t, 100.0, dist.TotalAllocated)
}

func TestDistributeEqual(t *testing.T) {
	dist, err := Distribute(board(9, 5, 1), 100, models.BonusMethodEqual)
	require.NoError(t, err)

	assert.Equal(t, 33.34, dist.Allocations[0].Amount)
	assert.Equal(t, 33.33, dist.Allocations[1].Amount)
	assert.Equal(t, 33.33, dist.Allocations[2].Amount)
	assert.Equal(t, 100.0, dist.TotalAllocated)
}

func TestDistributeTieredFullBoard(t *testing.T) {
	points := make([]float64, 50)
	for i := range points {
		points[i] = float64(100 - i)
	}

	dist, err := Distribute(board(points...), 50000, models.BonusMethodTiered)
	require.NoError(t, err)
	require.Len(t, dist.Allocations, 50)

	// 50% / 35% / 15% split equally inside each tier
	assert.Equal(t, 2500.0, dist.Allocations[0].Amount)
	assert.Equal(t, models.BonusTierTop10, dist.Allocations[0].Tier)
	assert.Equal(t, 875.0, dist.Allocations[10].Amount)
	assert.Equal(t, models.BonusTierMiddle, dist.Allocations[10].Tier)
	assert.Equal(t, 375.0, dist.Allocations[49].Amount)
	assert.Equal(t, models.BonusTierLower, dist.Allocations[49].Tier)

	assert.Equal(t, 50000.0, dist.TotalAllocated)
	assert.Equal(t, 25000.0, dist.TierTotals[models.BonusTierTop10])
	assert.Equal(t, 17500.0, dist.TierTotals[models.BonusTierMiddle])
	assert.Equal(t, 7500.0, dist.TierTotals[models.BonusTierLower])
}

func TestDistributeTieredShortBoard(t *testing.T) {
	// 15 players: the lower tier is empty and its share stays unspent
	points := make([]float64, 15)
	for i := range points {
		points[i] = float64(50 - i)
	}

	dist, err := Distribute(board(points...), 50000, models.BonusMethodTiered)
	require.NoError(t, err)
	require.Len(t, dist.Allocations, 15)

	assert.Equal(t, 2500.0, dist.Allocations[0].Amount)
	// ranks 11-15 split the middle tier's 17500 five ways
	assert.Equal(t, 3500.0, dist.Allocations[10].Amount)
	assert.Equal(t, 42500.0, dist.TotalAllocated)
	assert.NotContains(t, dist.TierTotals, models.BonusTierLower)
}

func TestDistributeInvalidInputs(t *testing.T) {
	_, err := Distribute(board(1), 0, models.BonusMethodEqual)
	assert.Error(t, err)

	_, err = Distribute(board(1), -5, models.BonusMethodEqual)
	assert.Error(t, err)

	_, err = Distribute(nil, 100, models.BonusMethodEqual)
	assert.Error(t, err)

	_, err = Distribute(board(1), 100, "random")
	assert.Error(t, err)
}
