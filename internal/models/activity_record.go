package models

import (
	"time"
)

// Time slots split each day at noon, matching the ops team's shift reports.
const (
	TimeSlotS1 = "S1" // 12am-12pm
	TimeSlotS2 = "S2" // 12pm-12am
)

// ActivityRecord is one validated row of player activity from an upload.
type ActivityRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	DatasetID     uint      `gorm:"not null;index:idx_records_dataset_player" json:"dataset_id"`
	Dataset       Dataset   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	PlayerID      string    `gorm:"size:64;not null;index:idx_records_dataset_player" json:"player_id"`
	GameType      string    `gorm:"size:32;not null;index" json:"game_type"`
	AmountWagered float64   `gorm:"not null" json:"amount_wagered"`
	AmountWon     float64   `gorm:"not null" json:"amount_won"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp"`
	TimeSlot      string    `gorm:"size:2;not null" json:"time_slot"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (ActivityRecord) TableName() string {
	return "activity_records"
}

// DeriveTimeSlot returns the slot a timestamp falls in.
func DeriveTimeSlot(t time.Time) string {
	if t.Hour() < 12 {
		return TimeSlotS1
	}
	return TimeSlotS2
}
