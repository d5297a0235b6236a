package loyalty

import (
	"sort"
	"strings"

	"github.com/abcgaming/loyalty-engine/internal/models"
)

// Rank orders scores by loyalty points descending and assigns 1-based
// ranks. Ties break on games played descending, then player ID ascending,
// so ranking is deterministic for identical input.
func Rank(scores []models.PlayerScore) []models.LeaderboardEntry {
	sorted := make([]models.PlayerScore, len(scores))
	copy(sorted, scores)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].LoyaltyPoints != sorted[j].LoyaltyPoints {
			return sorted[i].LoyaltyPoints > sorted[j].LoyaltyPoints
		}
		if sorted[i].GamesPlayed != sorted[j].GamesPlayed {
			return sorted[i].GamesPlayed > sorted[j].GamesPlayed
		}
		return sorted[i].PlayerID < sorted[j].PlayerID
	})

	entries := make([]models.LeaderboardEntry, len(sorted))
	for i, s := range sorted {
		entries[i] = models.LeaderboardEntry{
			Rank:          i + 1,
			PlayerID:      s.PlayerID,
			TotalWagered:  s.TotalWagered,
			TotalWon:      s.TotalWon,
			GamesPlayed:   s.GamesPlayed,
			LoyaltyPoints: s.LoyaltyPoints,
		}
	}
	return entries
}

// Filter narrows a ranked leaderboard. Entries keep their original ranks so
// a filtered view still shows where each player sits overall.
type Filter struct {
	Search    string
	MinPoints float64
}

func ApplyFilter(entries []models.LeaderboardEntry, f Filter) []models.LeaderboardEntry {
	if f.Search == "" && f.MinPoints <= 0 {
		return entries
	}

	search := strings.ToLower(f.Search)
	filtered := make([]models.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if f.MinPoints > 0 && e.LoyaltyPoints < f.MinPoints {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.PlayerID), search) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// Top returns the first n entries, or all of them when fewer exist.
func Top(entries []models.LeaderboardEntry, n int) []models.LeaderboardEntry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}
