package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"FinScope/internal/domain/models"
	"FinScope/pkg/util"

	"github.com/guregu/null/v6"
)

var dateHeaders = map[string]bool{"date": true, "datetime": true, "timestamp": true, "time": true}

// ReadSeriesCSV parses a header-led CSV export into rows. A "date" column is required;
// a "symbol" column overrides defaultSymbol per row. Every other column that is not a
// price or volume column becomes an indicator. Non-numeric cells are missing.
func ReadSeriesCSV(r io.Reader, defaultSymbol string) ([]models.SeriesRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	dateIdx, symbolIdx := -1, -1
	names := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		lower := strings.ToLower(name)
		switch {
		case dateHeaders[lower] && dateIdx < 0:
			dateIdx = i
		case lower == "symbol" || lower == "ticker":
			symbolIdx = i
		case lower == models.ColOpen || lower == models.ColHigh || lower == models.ColLow ||
			lower == models.ColClose || lower == models.ColVolume:
			name = lower
		}
		names[i] = name
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("csv: no date column in header %v", header)
	}
	if symbolIdx < 0 && defaultSymbol == "" {
		return nil, fmt.Errorf("csv: no symbol column and no default symbol")
	}

	var out []models.SeriesRow
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		date, ok := util.ParseTime(rec[dateIdx])
		if !ok {
			return nil, fmt.Errorf("csv line %d: bad date %q", line, rec[dateIdx])
		}
		row := models.SeriesRow{
			Symbol:     defaultSymbol,
			Date:       date.UTC(),
			Indicators: make(map[string]null.Float),
		}
		if symbolIdx >= 0 && strings.TrimSpace(rec[symbolIdx]) != "" {
			row.Symbol = strings.TrimSpace(rec[symbolIdx])
		}

		for i, cell := range rec {
			if i == dateIdx || i == symbolIdx || names[i] == "" {
				continue
			}
			var v null.Float
			if f, ok := util.ParseFloat(cell); ok {
				v = null.FloatFrom(f)
			}
			switch names[i] {
			case models.ColOpen:
				row.Open = v
			case models.ColHigh:
				row.High = v
			case models.ColLow:
				row.Low = v
			case models.ColClose:
				row.Close = v
			case models.ColVolume:
				row.Volume = v
			default:
				row.Indicators[names[i]] = v
			}
		}
		out = append(out, row)
	}
	return out, nil
}
