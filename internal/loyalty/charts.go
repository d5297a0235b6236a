package loyalty

import (
	"fmt"

	"github.com/abcgaming/loyalty-engine/internal/models"
)

// HistogramBins is the bucket count for the points distribution chart.
const HistogramBins = 20

// HistogramBin is one bucket of the points distribution. Min is inclusive;
// Max is exclusive except for the last bin.
type HistogramBin struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
	Label string  `json:"label"`
}

// PointsHistogram buckets loyalty points into bins equal-width buckets.
func PointsHistogram(scores []models.PlayerScore, bins int) []HistogramBin {
	if len(scores) == 0 || bins <= 0 {
		return nil
	}

	lo, hi := scores[0].LoyaltyPoints, scores[0].LoyaltyPoints
	for _, s := range scores[1:] {
		if s.LoyaltyPoints < lo {
			lo = s.LoyaltyPoints
		}
		if s.LoyaltyPoints > hi {
			hi = s.LoyaltyPoints
		}
	}

	// all players on the same score collapse to a single bucket
	if lo == hi {
		return []HistogramBin{{
			Min:   lo,
			Max:   hi,
			Count: len(scores),
			Label: fmt.Sprintf("%.1f", lo),
		}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]HistogramBin, bins)
	for i := range out {
		lower := lo + float64(i)*width
		out[i] = HistogramBin{
			Min:   lower,
			Max:   lower + width,
			Label: fmt.Sprintf("%.1f-%.1f", lower, lower+width),
		}
	}

	for _, s := range scores {
		i := int((s.LoyaltyPoints - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// BarSeries is a label/value pairing ready for a bar chart.
type BarSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// TopPlayersBar is the top-n leaderboard as a bar series of loyalty points.
func TopPlayersBar(entries []models.LeaderboardEntry, n int) BarSeries {
	top := Top(entries, n)
	series := BarSeries{
		Labels: make([]string, len(top)),
		Values: make([]float64, len(top)),
	}
	for i, e := range top {
		series.Labels[i] = e.PlayerID
		series.Values[i] = e.LoyaltyPoints
	}
	return series
}

// PieSlice is one wedge of a pie chart.
type PieSlice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// TierPie sums a bonus run's allocations by tier, in tier order. Runs
// without tiers (proportional, equal) produce a single slice.
func TierPie(allocations []models.BonusAllocation) []PieSlice {
	totals := make(map[string]float64)
	for _, a := range allocations {
		label := a.Tier
		if label == "" {
			label = "All players"
		}
		totals[label] += a.Amount
	}

	order := []string{models.BonusTierTop10, models.BonusTierMiddle, models.BonusTierLower, "All players"}
	slices := make([]PieSlice, 0, len(totals))
	for _, label := range order {
		if v, ok := totals[label]; ok {
			slices = append(slices, PieSlice{Label: label, Value: v})
		}
	}
	return slices
}
