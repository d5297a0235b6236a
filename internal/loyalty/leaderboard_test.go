package loyalty

import (
	"testing"

	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func score(player string, points float64, games int) models.PlayerScore {
	return models.PlayerScore{PlayerID: player, LoyaltyPoints: points, GamesPlayed: games}
}

func TestRank(t *testing.T) {
	scores := []models.PlayerScore{
		score("alice", 50, 9),
		score("bob", 100, 5),
		score("carol", 50, 12),
		score("dave", 50, 9),
	}

	entries := Rank(scores)
	require.Len(t, entries, 4)

	// points desc, then games desc, then player ID asc
	assert.Equal(t, "bob", entries[0].PlayerID)
	assert.Equal(t, "carol", entries[1].PlayerID)
	assert.Equal(t, "alice", entries[2].PlayerID)
	assert.Equal(t, "dave", entries[3].PlayerID)

	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].LoyaltyPoints, entries[i].LoyaltyPoints,
			"leaderboard must be non-increasing in points")
	}
}

func TestRankOnePlayerPerEntry(t *testing.T) {
	scores := make([]models.PlayerScore, 0, 25)
	for i := 0; i < 25; i++ {
		scores = append(scores, score(string(rune('a'+i)), float64(i), i))
	}

	entries := Rank(scores)

	assert.Len(t, entries, 25)
	seen := make(map[string]bool)
	for _, e := range entries {
		assert.False(t, seen[e.PlayerID], "player %s appears twice", e.PlayerID)
		seen[e.PlayerID] = true
	}
}

func TestApplyFilter(t *testing.T) {
	entries := Rank([]models.PlayerScore{
		score("alice", 100, 1),
		score("bob", 60, 1),
		score("ALI-7", 20, 1),
	})

	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{name: "no filter", filter: Filter{}, expected: []string{"alice", "bob", "ALI-7"}},
		{name: "search is case-insensitive", filter: Filter{Search: "ali"}, expected: []string{"alice", "ALI-7"}},
		{name: "min points", filter: Filter{MinPoints: 50}, expected: []string{"alice", "bob"}},
		{name: "combined", filter: Filter{Search: "ali", MinPoints: 50}, expected: []string{"alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyFilter(entries, tt.filter)
			ids := make([]string, len(got))
			for i, e := range got {
				ids[i] = e.PlayerID
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestApplyFilterKeepsOriginalRanks(t *testing.T) {
	entries := Rank([]models.PlayerScore{
		score("alice", 100, 1),
		score("bob", 60, 1),
		score("carol", 20, 1),
	})

	got := ApplyFilter(entries, Filter{Search: "carol"})

	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Rank)
}

func TestTop(t *testing.T) {
	entries := Rank([]models.PlayerScore{
		score("a", 3, 1), score("b", 2, 1), score("c", 1, 1),
	})

	assert.Len(t, Top(entries, 2), 2)
	assert.Len(t, Top(entries, 10), 3)
	assert.Len(t, Top(entries, 0), 3)
}
