package loyalty

import (
	"testing"
	"time"

	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(player string, wagered, won float64) models.ActivityRecord {
	return models.ActivityRecord{
		PlayerID:      player,
		GameType:      "slots",
		AmountWagered: wagered,
		AmountWon:     won,
		Timestamp:     time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestCalculatorScore(t *testing.T) {
	calc := NewCalculator(DefaultWeights())

	records := []models.ActivityRecord{
		record("P001", 100, 25),
		record("P001", 50, 0),
		record("P002", 0, 10),
	}

	scores := calc.Score(records)
	require.Len(t, scores, 2)

	// output is ordered by player ID
	p1, p2 := scores[0], scores[1]
	assert.Equal(t, "P001", p1.PlayerID)
	assert.Equal(t, "P002", p2.PlayerID)

	assert.Equal(t, 150.0, p1.TotalWagered)
	assert.Equal(t, 25.0, p1.TotalWon)
	assert.Equal(t, 2, p1.GamesPlayed)
	assert.Equal(t, 2, p1.WagerTxnCount)
	assert.Equal(t, 1, p1.WinTxnCount)

	// 150*0.01 + 25*0.005 + (2-1)*0.001 + 2*0.2
	assert.InDelta(t, 1.5, p1.WagerPoints, 1e-9)
	assert.InDelta(t, 0.125, p1.WinPoints, 1e-9)
	assert.InDelta(t, 0.001, p1.FrequencyPoints, 1e-9)
	assert.InDelta(t, 0.4, p1.GamesPoints, 1e-9)
	assert.InDelta(t, 2.026, p1.LoyaltyPoints, 1e-9)

	// win transactions never push frequency points negative
	assert.Equal(t, 0, p2.WagerTxnCount)
	assert.Equal(t, 1, p2.WinTxnCount)
	assert.InDelta(t, 0.0, p2.FrequencyPoints, 1e-9)
	assert.InDelta(t, 0.25, p2.LoyaltyPoints, 1e-9)
}

func TestCalculatorScoreCustomWeights(t *testing.T) {
	calc := NewCalculator(Weights{WagerRate: 0.1, WinRate: 0, FrequencyRate: 0, GamesRate: 1})

	scores := calc.Score([]models.ActivityRecord{record("P001", 200, 999)})

	require.Len(t, scores, 1)
	assert.InDelta(t, 21.0, scores[0].LoyaltyPoints, 1e-9)
}

func TestCalculatorScoreDeterministic(t *testing.T) {
	calc := NewCalculator(DefaultWeights())
	records := []models.ActivityRecord{
		record("P003", 10.5, 2.25),
		record("P001", 99.99, 0),
		record("P002", 0.01, 0.01),
		record("P001", 1, 1),
	}

	first := calc.Score(records)
	second := calc.Score(records)

	assert.Equal(t, first, second)
}

func TestCalculatorScoreEmpty(t *testing.T) {
	calc := NewCalculator(DefaultWeights())
	assert.Empty(t, calc.Score(nil))
}
