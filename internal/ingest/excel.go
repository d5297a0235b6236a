package ingest

import (
	"fmt"
	"io"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// parseXLSX reads the first sheet of a modern Excel workbook.
func parseXLSX(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("ingest: opening xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoValidRows
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoValidRows
	}

	acc, err := newAccumulator(rows[0])
	if err != nil {
		return nil, err
	}

	for i, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		acc.add(i+2, cells)
	}

	return acc.finish()
}

// parseXLS reads the first sheet of a legacy Excel workbook.
func parseXLS(r io.ReadSeeker) (*Result, error) {
	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("ingest: opening xls: %w", err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrNoValidRows
	}

	header := xlsRowCells(sheet, 0)
	if header == nil {
		return nil, ErrNoValidRows
	}

	acc, err := newAccumulator(header)
	if err != nil {
		return nil, err
	}

	for i := 1; i <= int(sheet.MaxRow); i++ {
		cells := xlsRowCells(sheet, i)
		if cells == nil || isBlank(cells) {
			continue
		}
		acc.add(i+1, cells)
	}

	return acc.finish()
}

func xlsRowCells(sheet *xls.WorkSheet, i int) []string {
	row := sheet.Row(i)
	if row == nil {
		return nil
	}
	cells := make([]string, row.LastCol())
	for j := 0; j < row.LastCol(); j++ {
		cells[j] = row.Col(j)
	}
	return cells
}
