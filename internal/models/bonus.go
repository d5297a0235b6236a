package models

import (
	"time"

	"gorm.io/datatypes"
)

// Bonus distribution methods
const (
	BonusMethodProportional = "proportional"
	BonusMethodEqual        = "equal"
	BonusMethodTiered       = "tiered"
)

// Tier labels for the tiered method
const (
	BonusTierTop10  = "Top 10"
	BonusTierMiddle = "Rank 11-30"
	BonusTierLower  = "Rank 31-50"
)

// BonusRun is one bonus-pool distribution over a dataset's leaderboard.
type BonusRun struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	PublicID       string         `gorm:"type:uuid;uniqueIndex;not null" json:"public_id"`
	DatasetID      uint           `gorm:"not null;index" json:"dataset_id"`
	Dataset        Dataset        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Period         string         `gorm:"size:7;not null;default:''" json:"period"`
	Method         string         `gorm:"size:16;not null" json:"method"`
	Pool           float64        `gorm:"not null" json:"pool"`
	PlayerCount    int            `json:"player_count"`
	TotalAllocated float64        `json:"total_allocated"`
	TierTotals     datatypes.JSON `json:"tier_totals,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`

	Allocations []BonusAllocation `gorm:"foreignKey:RunID" json:"allocations,omitempty"`
}

// TableName specifies the table name for GORM
func (BonusRun) TableName() string {
	return "bonus_runs"
}

// BonusAllocation is one player's share of a bonus run.
type BonusAllocation struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	RunID         uint     `gorm:"not null;index" json:"run_id"`
	Run           BonusRun `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Rank          int      `gorm:"not null" json:"rank"`
	PlayerID      string   `gorm:"size:64;not null" json:"player_id"`
	LoyaltyPoints float64  `json:"loyalty_points"`
	Amount        float64  `gorm:"not null" json:"amount"`
	Tier          string   `gorm:"size:16" json:"tier,omitempty"`
}

// TableName specifies the table name for GORM
func (BonusAllocation) TableName() string {
	return "bonus_allocations"
}
