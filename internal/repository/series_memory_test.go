package repository

import (
	"context"
	"testing"

	"FinScope/internal/domain/models"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySeriesStoreOrdersAndFilters(t *testing.T) {
	s := NewMemorySeriesStore()
	ctx := context.Background()

	require.NoError(t, s.InsertRows(ctx, []models.SeriesRow{
		row("BTC-USD", 3, 12, nil),
		row("BTC-USD", 1, 10, nil),
		row("ETH-USD", 1, 5, nil),
		row("BTC-USD", 2, 11, nil),
	}))

	rows, err := s.FetchSeries(ctx, models.SeriesQuery{Symbol: "BTC-USD"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, day(1), rows[0].Date)
	assert.Equal(t, day(3), rows[2].Date)

	rows, err = s.FetchSeries(ctx, models.SeriesQuery{Symbol: "BTC-USD", From: day(2), Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, day(2), rows[0].Date)

	syms, err := s.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, syms)
}

func TestMemorySeriesStoreUpsertAndDelete(t *testing.T) {
	s := NewMemorySeriesStore()
	ctx := context.Background()

	require.NoError(t, s.InsertRows(ctx, []models.SeriesRow{row("BTC-USD", 1, 10, nil)}))
	require.NoError(t, s.InsertRows(ctx, []models.SeriesRow{row("BTC-USD", 1, 99, nil)}))

	rows, err := s.FetchSeries(ctx, models.SeriesQuery{Symbol: "BTC-USD"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 99.0, rows[0].Close.Float64)

	require.NoError(t, s.DeleteSymbol(ctx, "BTC-USD"))
	rows, err = s.FetchSeries(ctx, models.SeriesQuery{Symbol: "BTC-USD"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemorySeriesStoreReturnsCopies(t *testing.T) {
	s := NewMemorySeriesStore()
	ctx := context.Background()
	require.NoError(t, s.InsertRows(ctx, []models.SeriesRow{row("BTC-USD", 1, 10, map[string]float64{"momentum_rsi": 40})}))

	rows, err := s.FetchSeries(ctx, models.SeriesQuery{})
	require.NoError(t, err)
	rows[0].Indicators["momentum_rsi"] = null.FloatFrom(-1)

	again, err := s.FetchSeries(ctx, models.SeriesQuery{})
	require.NoError(t, err)
	assert.Equal(t, 40.0, again[0].Indicators["momentum_rsi"].Float64)
}

func TestMemorySeriesStoreHonoursContext(t *testing.T) {
	s := NewMemorySeriesStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.FetchSeries(ctx, models.SeriesQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}
