package predictive

import (
	"math"
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"FinScope/internal/domain/models"
)

// Table is a validated, column-oriented snapshot of one symbol's series.
// Non-finite cells are stored as missing. A Table is never mutated after NewTable.
type Table struct {
	symbol     string
	dates      []time.Time
	cols       map[string][]null.Float
	indicators []string
}

// NewTable validates rows and pivots them into typed columns. Rows are ordered by date;
// an unsorted input is sorted on a copy. Rows of more than one symbol are rejected.
func NewTable(s models.Series) (*Table, error) {
	if len(s.Rows) == 0 {
		return nil, dataShapef("series %q has no rows", s.Symbol)
	}

	rows := s.Rows
	if !sort.SliceIsSorted(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) }) {
		rows = append([]models.SeriesRow(nil), s.Rows...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	}

	symbol := s.Symbol
	for _, r := range rows {
		if r.Symbol == "" {
			continue
		}
		if symbol == "" {
			symbol = r.Symbol
		}
		if r.Symbol != symbol {
			return nil, dataShapef("table mixes symbols %q and %q", symbol, r.Symbol)
		}
	}

	indicators := s.IndicatorNames()
	t := &Table{
		symbol:     symbol,
		dates:      make([]time.Time, len(rows)),
		cols:       make(map[string][]null.Float, len(indicators)+5),
		indicators: make([]string, 0, len(indicators)),
	}
	for _, name := range []string{models.ColOpen, models.ColHigh, models.ColLow, models.ColClose, models.ColVolume} {
		t.cols[name] = make([]null.Float, len(rows))
	}
	for _, name := range indicators {
		if isBaseColumn(name) {
			continue
		}
		t.cols[name] = make([]null.Float, len(rows))
		t.indicators = append(t.indicators, name)
	}

	for i, r := range rows {
		t.dates[i] = r.Date
		for name, col := range t.cols {
			if v, ok := r.Value(name); ok {
				col[i] = clean(v)
			}
		}
	}
	return t, nil
}

func clean(v null.Float) null.Float {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return null.Float{}
	}
	return v
}

func isBaseColumn(name string) bool {
	for _, b := range models.BaseColumns {
		if b == name {
			return true
		}
	}
	return false
}

func (t *Table) Symbol() string { return t.symbol }

func (t *Table) Len() int { return len(t.dates) }

func (t *Table) Dates() []time.Time { return t.dates }

// Indicators returns the indicator column names in table order.
func (t *Table) Indicators() []string {
	return append([]string(nil), t.indicators...)
}

// Column returns the named column. The slice must not be modified.
func (t *Table) Column(name string) ([]null.Float, bool) {
	c, ok := t.cols[name]
	return c, ok
}

// Present reports whether the column exists and holds at least one value.
func (t *Table) Present(name string) bool {
	c, ok := t.cols[name]
	if !ok {
		return false
	}
	for _, v := range c {
		if v.Valid {
			return true
		}
	}
	return false
}

// Validate reports required columns that are absent or empty, and null counts per column.
func Validate(s models.Series, required []string) models.ValidationReport {
	rep := models.ValidationReport{Rows: len(s.Rows), NullCounts: make(map[string]int)}

	columns := append(append([]string(nil), models.BaseColumns[2:]...), s.IndicatorNames()...)
	valid := make(map[string]int, len(columns))
	for _, r := range s.Rows {
		for _, c := range columns {
			v, _ := r.Value(c)
			if clean(v).Valid {
				valid[c]++
			} else {
				rep.NullCounts[c]++
			}
		}
	}
	for _, c := range required {
		if valid[c] == 0 {
			rep.MissingColumns = append(rep.MissingColumns, c)
		}
	}
	return rep
}
