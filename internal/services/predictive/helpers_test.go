package predictive

import (
	"time"

	"github.com/guregu/null/v6"

	"FinScope/internal/domain/models"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func floats(vs ...float64) []null.Float {
	out := make([]null.Float, len(vs))
	for i, v := range vs {
		out[i] = null.FloatFrom(v)
	}
	return out
}

func makeSeries(symbol string, closes []float64, indicators map[string][]null.Float) models.Series {
	s := models.Series{Symbol: symbol, Rows: make([]models.SeriesRow, len(closes))}
	for i, c := range closes {
		row := models.SeriesRow{
			Symbol:     symbol,
			Date:       day0.AddDate(0, 0, i),
			Close:      null.FloatFrom(c),
			Indicators: make(map[string]null.Float),
		}
		for name, col := range indicators {
			if i < len(col) {
				row.Indicators[name] = col[i]
			}
		}
		s.Rows[i] = row
	}
	return s
}

// signSeries returns 21 closes whose one-step forward returns alternate +1%/-1%,
// together with that sign pattern and a pattern orthogonal to it.
func signSeries() (closes []float64, signs, orthogonal []null.Float) {
	closes = make([]float64, 21)
	signs = make([]null.Float, 21)
	orthogonal = make([]null.Float, 21)
	closes[0] = 100
	for i := 0; i < 20; i++ {
		s := 1.0
		if i%2 == 1 {
			s = -1
		}
		o := 1.0
		if (i/2)%2 == 1 {
			o = -1
		}
		closes[i+1] = closes[i] * (1 + 0.01*s)
		signs[i] = null.FloatFrom(s)
		orthogonal[i] = null.FloatFrom(o)
	}
	signs[20] = null.FloatFrom(1)
	orthogonal[20] = null.FloatFrom(1)
	return closes, signs, orthogonal
}

func mustTable(s models.Series) *Table {
	t, err := NewTable(s)
	if err != nil {
		panic(err)
	}
	return t
}
