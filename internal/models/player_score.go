package models

import (
	"time"
)

// PlayerScore is one player's aggregated totals and loyalty points for a
// dataset and period. Period "" covers the whole dataset; "YYYY-MM" covers
// one calendar month.
type PlayerScore struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	DatasetID uint   `gorm:"not null;uniqueIndex:idx_scores_dataset_period_player" json:"dataset_id"`
	Period    string `gorm:"size:7;not null;default:'';uniqueIndex:idx_scores_dataset_period_player" json:"period"`
	PlayerID  string `gorm:"size:64;not null;uniqueIndex:idx_scores_dataset_period_player" json:"player_id"`

	TotalWagered  float64 `json:"total_wagered"`
	TotalWon      float64 `json:"total_won"`
	GamesPlayed   int     `json:"games_played"`
	WagerTxnCount int     `json:"wager_txn_count"`
	WinTxnCount   int     `json:"win_txn_count"`

	WagerPoints     float64 `json:"wager_points"`
	WinPoints       float64 `json:"win_points"`
	FrequencyPoints float64 `json:"frequency_points"`
	GamesPoints     float64 `json:"games_points"`
	LoyaltyPoints   float64 `gorm:"index" json:"loyalty_points"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PlayerScore) TableName() string {
	return "player_scores"
}

// LeaderboardEntry is a ranked score as served to clients.
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	PlayerID      string  `json:"player_id"`
	TotalWagered  float64 `json:"total_wagered"`
	TotalWon      float64 `json:"total_won"`
	GamesPlayed   int     `json:"games_played"`
	LoyaltyPoints float64 `json:"loyalty_points"`
}
