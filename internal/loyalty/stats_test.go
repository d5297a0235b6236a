package loyalty

import (
	"math"
	"testing"

	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	scores := []models.PlayerScore{
		{PlayerID: "a", TotalWagered: 100, TotalWon: 10, GamesPlayed: 4, LoyaltyPoints: 10},
		{PlayerID: "b", TotalWagered: 200, TotalWon: 20, GamesPlayed: 2, LoyaltyPoints: 20},
		{PlayerID: "c", TotalWagered: 300, TotalWon: 30, GamesPlayed: 8, LoyaltyPoints: 30},
		{PlayerID: "d", TotalWagered: 400, TotalWon: 40, GamesPlayed: 6, LoyaltyPoints: 40},
	}

	s := Stats(scores)

	assert.Equal(t, 4, s.Players)
	assert.Equal(t, 1000.0, s.TotalWagered)
	assert.Equal(t, 100.0, s.TotalWon)
	assert.Equal(t, 20, s.TotalGames)
	assert.Equal(t, 100.0, s.TotalPoints)

	assert.InDelta(t, 25.0, s.AvgPoints, 1e-9)
	assert.InDelta(t, 25.0, s.MedianPoints, 1e-9)
	assert.Equal(t, 40.0, s.MaxPoints)
	assert.Equal(t, 10.0, s.MinPoints)
	assert.InDelta(t, math.Sqrt(125), s.StdDevPoints, 1e-9)

	assert.InDelta(t, 250.0, s.AvgWageredPerPlayer, 1e-9)
	assert.InDelta(t, 5.0, s.AvgGamesPerPlayer, 1e-9)

	assert.Equal(t, "d", s.TopPlayer)
	assert.Equal(t, "c", s.MostActivePlayer)
}

func TestStatsEmptyAndSingle(t *testing.T) {
	assert.Equal(t, SummaryStats{}, Stats(nil))

	s := Stats([]models.PlayerScore{{PlayerID: "only", LoyaltyPoints: 7.5, GamesPlayed: 3}})
	assert.Equal(t, 1, s.Players)
	assert.Equal(t, 7.5, s.MedianPoints)
	assert.Equal(t, 7.5, s.MaxPoints)
	assert.Equal(t, 7.5, s.MinPoints)
	assert.Equal(t, 0.0, s.StdDevPoints)
}

func TestMedianEvenOdd(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
}

func TestCorrelation(t *testing.T) {
	// wagered is exactly 2x points; games played never varies
	scores := []models.PlayerScore{
		{TotalWagered: 2, TotalWon: 5, GamesPlayed: 5, LoyaltyPoints: 1},
		{TotalWagered: 4, TotalWon: 3, GamesPlayed: 5, LoyaltyPoints: 2},
		{TotalWagered: 6, TotalWon: 1, GamesPlayed: 5, LoyaltyPoints: 3},
	}

	m := Correlation(scores)
	require.Len(t, m, len(CorrelationLabels))

	for i := range m {
		assert.Equal(t, 1.0, m[i][i], "diagonal must be 1")
	}
	// total_wagered vs loyalty_points
	assert.InDelta(t, 1.0, m[0][3], 1e-9)
	// total_wagered vs total_won move in opposite directions
	assert.InDelta(t, -1.0, m[0][1], 1e-9)
	// zero-variance vector correlates with nothing
	assert.Equal(t, 0.0, m[2][0])
	assert.Equal(t, 0.0, m[2][3])
}
