package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Dataset lifecycle states
const (
	DatasetStatusUploaded   = "uploaded"
	DatasetStatusProcessing = "processing"
	DatasetStatusReady      = "ready"
	DatasetStatusFailed     = "failed"
)

// Dataset is one uploaded activity file and everything derived from it.
// Records and scores are scoped to a dataset, so re-uploading the same file
// creates a new dataset whose derived outputs are identical.
type Dataset struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	PublicID          string         `gorm:"type:uuid;uniqueIndex;not null" json:"public_id"`
	Filename          string         `gorm:"size:255;not null" json:"filename"`
	Format            string         `gorm:"size:10;not null" json:"format"` // "csv", "xlsx", "xls"
	SizeBytes         int64          `json:"size_bytes"`
	Status            string         `gorm:"size:20;not null;default:uploaded;index" json:"status"`
	RowCount          int            `json:"row_count"`
	PlayerCount       int            `json:"player_count"`
	DuplicatesDropped int            `json:"duplicates_dropped"`
	SourceColumns     datatypes.JSON `json:"source_columns"`
	Summary           IngestSummary  `gorm:"type:jsonb" json:"summary"`
	FailureReason     string         `gorm:"type:text" json:"failure_reason,omitempty"`
	UploadedAt        time.Time      `json:"uploaded_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Dataset) TableName() string {
	return "datasets"
}

// RowIssue records a row the ingester rejected, with the 1-based line number
// of the source file.
type RowIssue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// IngestSummary captures the outcome of parsing one upload.
type IngestSummary struct {
	ValidRows   int        `json:"valid_rows"`
	SkippedRows int        `json:"skipped_rows"`
	Issues      []RowIssue `json:"issues,omitempty"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

// Scan implements the sql.Scanner interface for JSONB
func (s *IngestSummary) Scan(value interface{}) error {
	if value == nil {
		*s = IngestSummary{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into IngestSummary", value)
	}

	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for JSONB
func (s IngestSummary) Value() (driver.Value, error) {
	return json.Marshal(s)
}
