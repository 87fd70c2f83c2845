package features

import (
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
	"FinScope/pkg/logger"
)

func ohlcv(n int) models.Series {
	s := models.Series{Symbol: "BTC-USD", Rows: make([]models.SeriesRow, n)}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 100 + 10*math.Sin(float64(i)/5) + float64(i)*0.3
		s.Rows[i] = models.SeriesRow{
			Symbol:     "BTC-USD",
			Date:       start.AddDate(0, 0, i),
			Open:       null.FloatFrom(c - 0.5),
			High:       null.FloatFrom(c + 1),
			Low:        null.FloatFrom(c - 1),
			Close:      null.FloatFrom(c),
			Volume:     null.FloatFrom(1000 + float64(i%7)*50),
			Indicators: map[string]null.Float{},
		}
	}
	return s
}

func TestEnrichAddsIndicatorColumns(t *testing.T) {
	s := ohlcv(80)

	out, added := Enrich(s, logger.Nop())

	assert.ElementsMatch(t, []string{SMAFast, SMASlow, EMAFast, EMASlow, MACD, MACDSignal, RSI, ATR, OBV}, added)
	require.Len(t, out.Rows, 80)
	assert.Empty(t, s.Rows[0].Indicators, "input is not modified")

	assert.False(t, out.Rows[0].Indicators[SMASlow].Valid, "warm-up rows stay missing")
	last := out.Rows[79].Indicators
	for _, name := range added {
		assert.True(t, last[name].Valid, name)
	}

	want := 0.0
	for i := 80 - FastPeriod; i < 80; i++ {
		want += s.Rows[i].Close.Float64
	}
	want /= FastPeriod
	assert.InDelta(t, want, last[SMAFast].Float64, 1e-9)
}

func TestEnrichKeepsProviderColumns(t *testing.T) {
	s := ohlcv(40)
	for i := range s.Rows {
		s.Rows[i].Indicators[RSI] = null.FloatFrom(50)
	}

	out, added := Enrich(s, nil)

	assert.NotContains(t, added, RSI)
	assert.Equal(t, 50.0, out.Rows[39].Indicators[RSI].Float64)
}

func TestEnrichSkipsWhenCloseHasGaps(t *testing.T) {
	s := ohlcv(40)
	s.Rows[10].Close = null.Float{}

	out, added := Enrich(s, logger.Nop())

	assert.Empty(t, added)
	assert.Len(t, out.Rows, 40)
}
