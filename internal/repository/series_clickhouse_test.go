package repository

import (
	"context"
	"errors"
	"testing"

	"FinScope/internal/domain/models"
	"FinScope/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seriesCols = []string{"symbol", "date", "open", "high", "low", "close", "volume", "indicators"}

func TestCHSeriesStoreFetch(t *testing.T) {
	ch, mock := newMockClient(t)
	store, err := NewCHSeriesStore(ch, "series_rows", logger.Nop())
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT symbol, date, open, high, low, close, volume, indicators FROM finscope\.series_rows FINAL WHERE symbol = \? AND date >= \? ORDER BY symbol ASC, date ASC LIMIT \?`).
		WithArgs("BTC-USD", day(2), 10).
		WillReturnRows(mock.NewRows(seriesCols).
			AddRow("BTC-USD", day(2), 1.0, 2.0, 0.5, 1.5, nil, map[string]float64{"momentum_rsi": 55}).
			AddRow("BTC-USD", day(3), nil, nil, nil, 1.6, 100.0, map[string]float64{}))

	rows, err := store.FetchSeries(context.Background(), models.SeriesQuery{Symbol: "BTC-USD", From: day(2), Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, day(2), rows[0].Date)
	assert.Equal(t, null.FloatFrom(1.5), rows[0].Close)
	assert.False(t, rows[0].Volume.Valid)
	assert.Equal(t, null.FloatFrom(55), rows[0].Indicators["momentum_rsi"])
	assert.False(t, rows[1].Open.Valid)
	assert.Empty(t, rows[1].Indicators)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSeriesStoreFetchError(t *testing.T) {
	ch, mock := newMockClient(t)
	store, err := NewCHSeriesStore(ch, "series_rows", nil)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))
	_, err = store.FetchSeries(context.Background(), models.SeriesQuery{})
	assert.ErrorContains(t, err, "connection reset")
}

func TestCHSeriesStoreInsertSkipsInvalidCells(t *testing.T) {
	ch, mock := newMockClient(t)
	store, err := NewCHSeriesStore(ch, "series_rows", nil)
	require.NoError(t, err)

	r := row("BTC-USD", 1, 10, map[string]float64{"trend_sma_fast": 9.5})
	r.Indicators["momentum_rsi"] = null.Float{}

	mock.ExpectExec(`INSERT INTO finscope\.series_rows \(symbol, date, open, high, low, close, volume, indicators\) VALUES \(\?, \?, \?, \?, \?, \?, \?, \?\)$`).
		WithArgs("BTC-USD", day(1), nil, nil, nil, 10.0, nil, map[string]float64{"trend_sma_fast": 9.5}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.InsertRows(context.Background(), []models.SeriesRow{r, {Symbol: ""}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSeriesStoreSymbolsAndDelete(t *testing.T) {
	ch, mock := newMockClient(t)
	store, err := NewCHSeriesStore(ch, "series_rows", nil)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT DISTINCT symbol FROM finscope\.series_rows`).
		WillReturnRows(sqlmock.NewRows([]string{"symbol"}).AddRow("BTC-USD").AddRow("ETH-USD"))
	mock.ExpectExec(`ALTER TABLE finscope\.series_rows DELETE WHERE symbol = \?`).
		WithArgs("ETH-USD").
		WillReturnResult(sqlmock.NewResult(0, 0))

	syms, err := store.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, syms)

	require.NoError(t, store.DeleteSymbol(context.Background(), "ETH-USD"))
	assert.Error(t, store.DeleteSymbol(context.Background(), ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewCHSeriesStoreRejectsBadTable(t *testing.T) {
	ch, _ := newMockClient(t)
	_, err := NewCHSeriesStore(ch, "rows; DROP TABLE x", nil)
	assert.Error(t, err)
}

func TestSeriesSchemaNamesTable(t *testing.T) {
	stmts := SeriesSchema("finscope", "series_rows")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "finscope.series_rows")
	assert.Contains(t, stmts[1], "Map(String, Float64)")
}
