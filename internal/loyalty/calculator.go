// Package loyalty computes loyalty points, leaderboards, bonus pools and
// summary statistics from player activity.
package loyalty

import (
	"sort"

	"github.com/abcgaming/loyalty-engine/internal/models"
)

// Weights control how raw activity converts to loyalty points.
type Weights struct {
	WagerRate     float64 `json:"wager_rate"`
	WinRate       float64 `json:"win_rate"`
	FrequencyRate float64 `json:"frequency_rate"`
	GamesRate     float64 `json:"games_rate"`
}

// DefaultWeights are the loyalty program's published earning rates.
func DefaultWeights() Weights {
	return Weights{
		WagerRate:     0.01,
		WinRate:       0.005,
		FrequencyRate: 0.001,
		GamesRate:     0.2,
	}
}

type Calculator struct {
	weights Weights
}

func NewCalculator(weights Weights) *Calculator {
	return &Calculator{weights: weights}
}

// Score aggregates activity records into one score per player. Points are
// earned on amounts wagered and won, on net wagering frequency (wager
// transactions in excess of win transactions), and per game played. Output
// is ordered by player ID so identical input always produces identical
// output.
func (c *Calculator) Score(records []models.ActivityRecord) []models.PlayerScore {
	type totals struct {
		wagered   float64
		won       float64
		games     int
		wagerTxns int
		winTxns   int
	}

	byPlayer := make(map[string]*totals)
	for _, r := range records {
		t, ok := byPlayer[r.PlayerID]
		if !ok {
			t = &totals{}
			byPlayer[r.PlayerID] = t
		}
		t.wagered += r.AmountWagered
		t.won += r.AmountWon
		t.games++
		if r.AmountWagered > 0 {
			t.wagerTxns++
		}
		if r.AmountWon > 0 {
			t.winTxns++
		}
	}

	players := make([]string, 0, len(byPlayer))
	for id := range byPlayer {
		players = append(players, id)
	}
	sort.Strings(players)

	scores := make([]models.PlayerScore, 0, len(players))
	for _, id := range players {
		t := byPlayer[id]

		netTxns := t.wagerTxns - t.winTxns
		if netTxns < 0 {
			netTxns = 0
		}

		score := models.PlayerScore{
			PlayerID:        id,
			TotalWagered:    t.wagered,
			TotalWon:        t.won,
			GamesPlayed:     t.games,
			WagerTxnCount:   t.wagerTxns,
			WinTxnCount:     t.winTxns,
			WagerPoints:     t.wagered * c.weights.WagerRate,
			WinPoints:       t.won * c.weights.WinRate,
			FrequencyPoints: float64(netTxns) * c.weights.FrequencyRate,
			GamesPoints:     float64(t.games) * c.weights.GamesRate,
		}
		score.LoyaltyPoints = score.WagerPoints + score.WinPoints + score.FrequencyPoints + score.GamesPoints
		scores = append(scores, score)
	}

	return scores
}
