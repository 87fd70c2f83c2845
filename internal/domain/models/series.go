package models

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// Price and volume columns every series row carries.
const (
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
)

// BaseColumns are never treated as indicator candidates.
var BaseColumns = []string{"date", "symbol", ColOpen, ColHigh, ColLow, ColClose, ColVolume}

// SeriesRow is one (symbol, date) observation. Missing cells are invalid null.Float values.
type SeriesRow struct {
	Symbol     string
	Date       time.Time
	Open       null.Float
	High       null.Float
	Low        null.Float
	Close      null.Float
	Volume     null.Float
	Indicators map[string]null.Float
}

// Value returns the named column of the row, base columns included.
func (r SeriesRow) Value(column string) (null.Float, bool) {
	switch column {
	case ColOpen:
		return r.Open, true
	case ColHigh:
		return r.High, true
	case ColLow:
		return r.Low, true
	case ColClose:
		return r.Close, true
	case ColVolume:
		return r.Volume, true
	}
	v, ok := r.Indicators[column]
	return v, ok
}

// Clone returns a deep copy of the row.
func (r SeriesRow) Clone() SeriesRow {
	out := r
	out.Indicators = make(map[string]null.Float, len(r.Indicators))
	for k, v := range r.Indicators {
		out.Indicators[k] = v
	}
	return out
}

// Series is an ordered snapshot of rows for one symbol, ascending by date.
type Series struct {
	Symbol string
	Rows   []SeriesRow
}

// IndicatorNames returns the indicator columns present in any row, in first-seen order.
// Rows are scanned in date order and each row's keys are visited sorted.
func (s Series) IndicatorNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, row := range s.Rows {
		keys := make([]string, 0, len(row.Indicators))
		for k := range row.Indicators {
			if _, ok := seen[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = struct{}{}
			names = append(names, k)
		}
	}
	return names
}

// Clone returns a deep copy of the series.
func (s Series) Clone() Series {
	out := Series{Symbol: s.Symbol, Rows: make([]SeriesRow, len(s.Rows))}
	for i, r := range s.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// SeriesQuery selects rows from a series provider. Zero times leave that bound open,
// an empty Symbol selects all symbols and Limit <= 0 means no limit.
type SeriesQuery struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

// Matches reports whether a row satisfies the query bounds.
func (q SeriesQuery) Matches(r SeriesRow) bool {
	if q.Symbol != "" && r.Symbol != q.Symbol {
		return false
	}
	if !q.From.IsZero() && r.Date.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && r.Date.After(q.To) {
		return false
	}
	return true
}
