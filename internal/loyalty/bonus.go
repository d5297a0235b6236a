package loyalty

import (
	"fmt"

	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultBonusPlayers caps how many leaderboard entries share a bonus pool.
const DefaultBonusPlayers = 50

var bonusTiers = []struct {
	label     string
	firstRank int
	lastRank  int
	share     decimal.Decimal
}{
	{models.BonusTierTop10, 1, 10, decimal.NewFromFloat(0.50)},
	{models.BonusTierMiddle, 11, 30, decimal.NewFromFloat(0.35)},
	{models.BonusTierLower, 31, 50, decimal.NewFromFloat(0.15)},
}

// Distribution is the result of splitting a bonus pool across a
// leaderboard.
type Distribution struct {
	Allocations    []models.BonusAllocation `json:"allocations"`
	TotalAllocated float64                  `json:"total_allocated"`
	TierTotals     map[string]float64       `json:"tier_totals,omitempty"`
}

// Distribute splits a bonus pool across ranked entries. All money math is
// done in decimals and rounded to cents; rounding drift lands on the
// highest-ranked player so proportional and equal splits spend the pool
// exactly. Tiered splits spend each non-empty tier's share exactly; an
// empty tier's share is not handed out.
func Distribute(entries []models.LeaderboardEntry, pool float64, method string) (*Distribution, error) {
	if pool <= 0 {
		return nil, fmt.Errorf("loyalty: bonus pool must be positive, got %v", pool)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("loyalty: no players to allocate a bonus to")
	}

	p := decimal.NewFromFloat(pool).Round(2)

	switch method {
	case models.BonusMethodProportional:
		return distributeProportional(entries, p), nil
	case models.BonusMethodEqual:
		return distributeEqual(entries, p), nil
	case models.BonusMethodTiered:
		return distributeTiered(entries, p), nil
	default:
		return nil, fmt.Errorf("loyalty: unknown bonus method %q", method)
	}
}

func distributeProportional(entries []models.LeaderboardEntry, pool decimal.Decimal) *Distribution {
	totalPoints := decimal.Zero
	for _, e := range entries {
		totalPoints = totalPoints.Add(decimal.NewFromFloat(e.LoyaltyPoints))
	}
	// a board where nobody earned points degrades to an equal split
	if totalPoints.IsZero() {
		return distributeEqual(entries, pool)
	}

	amounts := make([]decimal.Decimal, len(entries))
	allocated := decimal.Zero
	for i, e := range entries {
		amounts[i] = pool.Mul(decimal.NewFromFloat(e.LoyaltyPoints)).Div(totalPoints).Round(2)
		allocated = allocated.Add(amounts[i])
	}
	amounts[0] = amounts[0].Add(pool.Sub(allocated))

	return buildDistribution(entries, amounts, nil)
}

func distributeEqual(entries []models.LeaderboardEntry, pool decimal.Decimal) *Distribution {
	return buildDistribution(entries, splitEqually(pool, len(entries)), nil)
}

func distributeTiered(entries []models.LeaderboardEntry, pool decimal.Decimal) *Distribution {
	type tier struct {
		label   string
		members []models.LeaderboardEntry
		pool    decimal.Decimal
	}

	var tiers []tier
	assigned := decimal.Zero
	for _, t := range bonusTiers {
		var members []models.LeaderboardEntry
		for _, e := range entries {
			if e.Rank >= t.firstRank && e.Rank <= t.lastRank {
				members = append(members, e)
			}
		}
		if len(members) == 0 {
			continue
		}
		tp := pool.Mul(t.share).Round(2)
		tiers = append(tiers, tier{label: t.label, members: members, pool: tp})
		assigned = assigned.Add(tp)
	}

	// with every tier populated the whole pool is spent; the tier-level
	// rounding drift is absorbed by the top tier
	if len(tiers) == len(bonusTiers) {
		tiers[0].pool = tiers[0].pool.Add(pool.Sub(assigned))
	}

	var (
		allEntries []models.LeaderboardEntry
		allAmounts []decimal.Decimal
		allTiers   []string
	)
	tierTotals := make(map[string]float64, len(tiers))
	for _, t := range tiers {
		amounts := splitEqually(t.pool, len(t.members))
		for i, m := range t.members {
			allEntries = append(allEntries, m)
			allAmounts = append(allAmounts, amounts[i])
			allTiers = append(allTiers, t.label)
		}
		total, _ := t.pool.Float64()
		tierTotals[t.label] = total
	}

	dist := buildDistribution(allEntries, allAmounts, allTiers)
	dist.TierTotals = tierTotals
	return dist
}

// splitEqually divides pool into n shares rounded to cents. The rounding
// remainder lands on the first share so the pieces sum to pool exactly.
func splitEqually(pool decimal.Decimal, n int) []decimal.Decimal {
	share := pool.Div(decimal.NewFromInt(int64(n))).Round(2)
	amounts := make([]decimal.Decimal, n)
	total := decimal.Zero
	for i := range amounts {
		amounts[i] = share
		total = total.Add(share)
	}
	amounts[0] = amounts[0].Add(pool.Sub(total))
	return amounts
}

func buildDistribution(entries []models.LeaderboardEntry, amounts []decimal.Decimal, tiers []string) *Distribution {
	allocs := make([]models.BonusAllocation, len(entries))
	total := decimal.Zero
	for i, e := range entries {
		amt, _ := amounts[i].Float64()
		allocs[i] = models.BonusAllocation{
			Rank:          e.Rank,
			PlayerID:      e.PlayerID,
			LoyaltyPoints: e.LoyaltyPoints,
			Amount:        amt,
		}
		if tiers != nil {
			allocs[i].Tier = tiers[i]
		}
		total = total.Add(amounts[i])
	}

	allocated, _ := total.Float64()
	return &Distribution{
		Allocations:    allocs,
		TotalAllocated: allocated,
	}
}
