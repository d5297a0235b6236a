package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/abcgaming/loyalty-engine/internal/models"
	"github.com/xuri/excelize/v2"
)

// Report and format identifiers accepted by the export endpoint
const (
	ReportLoyalty = "loyalty"
	ReportBonus   = "bonus"

	ExportFormatXLSX = "xlsx"
	ExportFormatCSV  = "csv"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv"

	maxColumnWidth = 50
)

// ExportFile is a rendered report ready to stream to the client.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExportService renders loyalty and bonus reports as spreadsheet or CSV
// downloads.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

// LoyaltyReport exports per-player score breakdowns and the ranked
// leaderboard.
func (s *ExportService) LoyaltyReport(scores []models.PlayerScore, entries []models.LeaderboardEntry, format string) (*ExportFile, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("no scores to export")
	}

	switch format {
	case ExportFormatXLSX:
		return s.loyaltyWorkbook(scores, entries)
	case ExportFormatCSV:
		return s.loyaltyCSV(entries)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// BonusReport exports a bonus run's allocations plus a summary sheet.
func (s *ExportService) BonusReport(run *models.BonusRun, format string) (*ExportFile, error) {
	if run == nil || len(run.Allocations) == 0 {
		return nil, fmt.Errorf("no allocations to export")
	}

	switch format {
	case ExportFormatXLSX:
		return s.bonusWorkbook(run)
	case ExportFormatCSV:
		return s.bonusCSV(run)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

func (s *ExportService) loyaltyWorkbook(scores []models.PlayerScore, entries []models.LeaderboardEntry) (*ExportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	const breakdownSheet = "Loyalty Points"
	f.SetSheetName("Sheet1", breakdownSheet)

	breakdownHeaders := []string{
		"Player ID", "Total Wagered", "Total Won", "Games Played",
		"Wager Txns", "Win Txns", "Wager Points", "Win Points",
		"Frequency Points", "Games Points", "Loyalty Points",
	}
	breakdownRows := make([][]interface{}, 0, len(scores))
	for _, sc := range scores {
		breakdownRows = append(breakdownRows, []interface{}{
			sc.PlayerID, sc.TotalWagered, sc.TotalWon, sc.GamesPlayed,
			sc.WagerTxnCount, sc.WinTxnCount, sc.WagerPoints, sc.WinPoints,
			sc.FrequencyPoints, sc.GamesPoints, sc.LoyaltyPoints,
		})
	}
	if err := writeSheet(f, breakdownSheet, breakdownHeaders, breakdownRows); err != nil {
		return nil, err
	}

	const rankingSheet = "Top 50 Rankings"
	if _, err := f.NewSheet(rankingSheet); err != nil {
		return nil, fmt.Errorf("creating ranking sheet: %w", err)
	}

	rankingHeaders := []string{"Rank", "Player ID", "Total Wagered", "Total Won", "Games Played", "Loyalty Points"}
	rankingRows := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		rankingRows = append(rankingRows, []interface{}{
			e.Rank, e.PlayerID, e.TotalWagered, e.TotalWon, e.GamesPlayed, e.LoyaltyPoints,
		})
	}
	if err := writeSheet(f, rankingSheet, rankingHeaders, rankingRows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}

	return &ExportFile{
		Name:        exportFilename("loyalty_points_report", ExportFormatXLSX),
		ContentType: xlsxContentType,
		Data:        buf.Bytes(),
	}, nil
}

func (s *ExportService) loyaltyCSV(entries []models.LeaderboardEntry) (*ExportFile, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"rank", "player_id", "total_wagered", "total_won", "games_played", "loyalty_points"}); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	for _, e := range entries {
		row := []string{
			strconv.Itoa(e.Rank),
			e.PlayerID,
			money(e.TotalWagered),
			money(e.TotalWon),
			strconv.Itoa(e.GamesPlayed),
			money(e.LoyaltyPoints),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write entry: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return &ExportFile{
		Name:        exportFilename("loyalty_points_report", ExportFormatCSV),
		ContentType: csvContentType,
		Data:        buf.Bytes(),
	}, nil
}

func (s *ExportService) bonusWorkbook(run *models.BonusRun) (*ExportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	const allocationSheet = "Bonus Allocation"
	f.SetSheetName("Sheet1", allocationSheet)

	allocationHeaders := []string{"Rank", "Player ID", "Loyalty Points", "Bonus Amount", "Tier"}
	allocationRows := make([][]interface{}, 0, len(run.Allocations))
	for _, a := range run.Allocations {
		allocationRows = append(allocationRows, []interface{}{
			a.Rank, a.PlayerID, a.LoyaltyPoints, a.Amount, a.Tier,
		})
	}
	if err := writeSheet(f, allocationSheet, allocationHeaders, allocationRows); err != nil {
		return nil, err
	}

	const summarySheet = "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("creating summary sheet: %w", err)
	}
	if err := writeSheet(f, summarySheet, []string{"Metric", "Value"}, s.bonusSummaryRows(run)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}

	return &ExportFile{
		Name:        exportFilename("bonus_allocation_report", ExportFormatXLSX),
		ContentType: xlsxContentType,
		Data:        buf.Bytes(),
	}, nil
}

func (s *ExportService) bonusCSV(run *models.BonusRun) (*ExportFile, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"rank", "player_id", "loyalty_points", "bonus_amount", "tier"}); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	for _, a := range run.Allocations {
		row := []string{
			strconv.Itoa(a.Rank),
			a.PlayerID,
			money(a.LoyaltyPoints),
			money(a.Amount),
			a.Tier,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write allocation: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return &ExportFile{
		Name:        exportFilename("bonus_allocation_report", ExportFormatCSV),
		ContentType: csvContentType,
		Data:        buf.Bytes(),
	}, nil
}

func (s *ExportService) bonusSummaryRows(run *models.BonusRun) [][]interface{} {
	period := run.Period
	if period == "" {
		period = "all"
	}

	rows := [][]interface{}{
		{"Period", period},
		{"Method", run.Method},
		{"Bonus Pool", run.Pool},
		{"Players Paid", run.PlayerCount},
		{"Total Allocated", run.TotalAllocated},
	}
	if run.PlayerCount > 0 {
		rows = append(rows, []interface{}{"Average Bonus", run.TotalAllocated / float64(run.PlayerCount)})
	}

	if len(run.TierTotals) > 0 {
		var tiers map[string]float64
		if err := json.Unmarshal(run.TierTotals, &tiers); err == nil {
			for _, label := range []string{models.BonusTierTop10, models.BonusTierMiddle, models.BonusTierLower} {
				if total, ok := tiers[label]; ok {
					rows = append(rows, []interface{}{label + " Total", total})
				}
			}
		}
	}

	rows = append(rows, []interface{}{"Generated At", run.CreatedAt.UTC().Format(time.RFC3339)})
	return rows
}

// writeSheet writes a header row plus data rows and sizes each column to
// its longest value, capped at maxColumnWidth.
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	widths := make([]int, len(headers))

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
		widths[i] = len(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
		for j, v := range row {
			if j >= len(widths) {
				break
			}
			if l := len(fmt.Sprint(v)); l > widths[j] {
				widths[j] = l
			}
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(w + 2)
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

func exportFilename(prefix, format string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, time.Now().UTC().Format("20060102_150405"), format)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
