package loyalty

import (
	"math"
	"sort"

	"github.com/abcgaming/loyalty-engine/internal/models"
)

// SummaryStats describes one scored period at a glance.
type SummaryStats struct {
	Players      int     `json:"players"`
	TotalWagered float64 `json:"total_wagered"`
	TotalWon     float64 `json:"total_won"`
	TotalGames   int     `json:"total_games"`
	TotalPoints  float64 `json:"total_points"`

	AvgPoints    float64 `json:"avg_points"`
	MedianPoints float64 `json:"median_points"`
	MaxPoints    float64 `json:"max_points"`
	MinPoints    float64 `json:"min_points"`
	StdDevPoints float64 `json:"std_dev_points"`

	AvgWageredPerPlayer float64 `json:"avg_wagered_per_player"`
	AvgGamesPerPlayer   float64 `json:"avg_games_per_player"`

	TopPlayer        string `json:"top_player"`
	MostActivePlayer string `json:"most_active_player"`
}

// Stats summarizes a score set. Returns the zero value for no scores.
func Stats(scores []models.PlayerScore) SummaryStats {
	if len(scores) == 0 {
		return SummaryStats{}
	}

	s := SummaryStats{
		Players:   len(scores),
		MinPoints: math.Inf(1),
		MaxPoints: math.Inf(-1),
	}

	points := make([]float64, 0, len(scores))
	var topPoints float64
	var mostGames int
	for _, sc := range scores {
		s.TotalWagered += sc.TotalWagered
		s.TotalWon += sc.TotalWon
		s.TotalGames += sc.GamesPlayed
		s.TotalPoints += sc.LoyaltyPoints
		points = append(points, sc.LoyaltyPoints)

		if sc.LoyaltyPoints < s.MinPoints {
			s.MinPoints = sc.LoyaltyPoints
		}
		if sc.LoyaltyPoints > s.MaxPoints {
			s.MaxPoints = sc.LoyaltyPoints
		}
		if s.TopPlayer == "" || sc.LoyaltyPoints > topPoints {
			s.TopPlayer = sc.PlayerID
			topPoints = sc.LoyaltyPoints
		}
		if s.MostActivePlayer == "" || sc.GamesPlayed > mostGames {
			s.MostActivePlayer = sc.PlayerID
			mostGames = sc.GamesPlayed
		}
	}

	n := float64(len(scores))
	s.AvgPoints = s.TotalPoints / n
	s.MedianPoints = median(points)
	s.StdDevPoints = stdDev(points, s.AvgPoints)
	s.AvgWageredPerPlayer = s.TotalWagered / n
	s.AvgGamesPerPlayer = float64(s.TotalGames) / n

	return s
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// stdDev is the population standard deviation.
func stdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// CorrelationLabels name the rows and columns of the correlation matrix, in
// order.
var CorrelationLabels = []string{"total_wagered", "total_won", "games_played", "loyalty_points"}

// Correlation computes the Pearson correlation matrix over the players'
// wagering totals, winnings, game counts and loyalty points.
func Correlation(scores []models.PlayerScore) [][]float64 {
	vectors := [][]float64{
		make([]float64, len(scores)),
		make([]float64, len(scores)),
		make([]float64, len(scores)),
		make([]float64, len(scores)),
	}
	for i, s := range scores {
		vectors[0][i] = s.TotalWagered
		vectors[1][i] = s.TotalWon
		vectors[2][i] = float64(s.GamesPlayed)
		vectors[3][i] = s.LoyaltyPoints
	}

	matrix := make([][]float64, len(vectors))
	for i := range vectors {
		matrix[i] = make([]float64, len(vectors))
		for j := range vectors {
			if i == j {
				matrix[i][j] = 1
				continue
			}
			matrix[i][j] = pearson(vectors[i], vectors[j])
		}
	}
	return matrix
}

// pearson returns 0 when either vector has no variance.
func pearson(x, y []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}

	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range x {
		dx, dy := x[i]-meanX, y[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
