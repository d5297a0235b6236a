package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

func parseCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoValidRows
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: reading header: %w", err)
	}

	acc, err := newAccumulator(header)
	if err != nil {
		return nil, err
	}

	// Header is line 1; data starts at line 2.
	line := 1
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				acc.skip(line, fmt.Sprintf("malformed row: %v", parseErr.Err))
				continue
			}
			return nil, fmt.Errorf("ingest: reading row %d: %w", line, err)
		}
		if isBlank(cells) {
			continue
		}
		acc.add(line, cells)
	}

	return acc.finish()
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
