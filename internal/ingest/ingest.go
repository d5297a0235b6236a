// Package ingest parses uploaded player-activity files into validated rows.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abcgaming/loyalty-engine/internal/models"
)

// RequiredColumns are the headers every upload must contain. Extra columns
// are ignored.
var RequiredColumns = []string{
	"player_id",
	"game_type",
	"amount_wagered",
	"amount_won",
	"timestamp",
}

// Supported file formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatXLS  = "xls"
)

// Issues beyond this count are dropped from the summary; SkippedRows still
// counts every rejected row.
const maxReportedIssues = 100

var ErrNoValidRows = errors.New("ingest: file contains no valid rows")

// UnsupportedFormatError reports a file extension the ingester cannot read.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("ingest: unsupported file format %q (expected .csv, .xlsx or .xls)", e.Ext)
}

// MissingColumnsError reports required headers absent from the file.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("ingest: missing required columns: %s", strings.Join(e.Columns, ", "))
}

// Row is one validated activity row.
type Row struct {
	PlayerID      string
	GameType      string
	AmountWagered float64
	AmountWon     float64
	Timestamp     time.Time
}

// Result is the outcome of parsing a file.
type Result struct {
	Rows              []Row
	SourceColumns     []string
	DuplicatesDropped int
	Summary           models.IngestSummary
}

// DetectFormat maps a filename to a supported format by extension.
func DetectFormat(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	default:
		return "", &UnsupportedFormatError{Ext: ext}
	}
}

// Parse reads a tabular activity file of the given format. The reader must
// be positioned at the start of the file.
func Parse(r io.ReadSeeker, format string) (*Result, error) {
	switch format {
	case FormatCSV:
		return parseCSV(r)
	case FormatXLSX:
		return parseXLSX(r)
	case FormatXLS:
		return parseXLS(r)
	default:
		return nil, &UnsupportedFormatError{Ext: format}
	}
}

// accumulator validates raw rows against the mapped header and collects the
// parse result. Both the CSV and Excel readers feed it one row at a time.
type accumulator struct {
	idx  map[string]int
	res  *Result
	seen map[string]struct{}
}

func newAccumulator(header []string) (*accumulator, error) {
	idx := mapHeaders(header)
	if missing := missingColumns(idx); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	cols := make([]string, 0, len(header))
	for _, h := range header {
		cols = append(cols, strings.TrimSpace(h))
	}

	return &accumulator{
		idx:  idx,
		res:  &Result{SourceColumns: cols},
		seen: make(map[string]struct{}),
	}, nil
}

// mapHeaders lowercases and trims header cells and maps them to their
// column index.
func mapHeaders(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func missingColumns(idx map[string]int) []string {
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// add validates one data row. line is the 1-based line number in the source
// file, used for issue reporting.
func (a *accumulator) add(line int, cells []string) {
	get := func(col string) string {
		i := a.idx[col]
		if i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	playerID := get("player_id")
	if playerID == "" {
		a.skip(line, "missing player_id")
		return
	}

	gameType := strings.ToLower(get("game_type"))
	if gameType == "" {
		a.skip(line, "missing game_type")
		return
	}

	wagered, err := parseAmount(get("amount_wagered"))
	if err != nil {
		a.skip(line, fmt.Sprintf("amount_wagered: %v", err))
		return
	}

	won, err := parseAmount(get("amount_won"))
	if err != nil {
		a.skip(line, fmt.Sprintf("amount_won: %v", err))
		return
	}

	ts, err := parseTimestamp(get("timestamp"))
	if err != nil {
		a.skip(line, fmt.Sprintf("timestamp: %v", err))
		return
	}

	row := Row{
		PlayerID:      playerID,
		GameType:      gameType,
		AmountWagered: wagered,
		AmountWon:     won,
		Timestamp:     ts,
	}

	key := dedupKey(row)
	if _, dup := a.seen[key]; dup {
		a.res.DuplicatesDropped++
		return
	}
	a.seen[key] = struct{}{}

	a.res.Rows = append(a.res.Rows, row)
	a.res.Summary.ValidRows++
	a.trackPeriod(ts)
}

func (a *accumulator) skip(line int, reason string) {
	a.res.Summary.SkippedRows++
	if len(a.res.Summary.Issues) < maxReportedIssues {
		a.res.Summary.Issues = append(a.res.Summary.Issues, models.RowIssue{Line: line, Reason: reason})
	}
}

func (a *accumulator) trackPeriod(ts time.Time) {
	s := a.res.Summary
	if s.PeriodStart == nil || ts.Before(*s.PeriodStart) {
		t := ts
		a.res.Summary.PeriodStart = &t
	}
	if s.PeriodEnd == nil || ts.After(*s.PeriodEnd) {
		t := ts
		a.res.Summary.PeriodEnd = &t
	}
}

func (a *accumulator) finish() (*Result, error) {
	if len(a.res.Rows) == 0 {
		return nil, ErrNoValidRows
	}
	return a.res, nil
}

func dedupKey(r Row) string {
	return strings.Join([]string{
		r.PlayerID,
		r.GameType,
		strconv.FormatFloat(r.AmountWagered, 'g', -1, 64),
		strconv.FormatFloat(r.AmountWon, 'g', -1, 64),
		r.Timestamp.Format(time.RFC3339Nano),
	}, "\x1f")
}

// parseAmount parses a monetary cell. Blank cells count as zero; negative
// values are rejected.
func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not numeric", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%v is negative", v)
	}
	return v, nil
}

var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04",
	"01/02/2006",
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing value")
	}
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a recognized date", s)
}

// RecordsFromRows converts parsed rows to persistable records for a dataset.
func RecordsFromRows(datasetID uint, rows []Row) []models.ActivityRecord {
	records := make([]models.ActivityRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, models.ActivityRecord{
			DatasetID:     datasetID,
			PlayerID:      r.PlayerID,
			GameType:      r.GameType,
			AmountWagered: r.AmountWagered,
			AmountWon:     r.AmountWon,
			Timestamp:     r.Timestamp,
			TimeSlot:      models.DeriveTimeSlot(r.Timestamp),
		})
	}
	return records
}
