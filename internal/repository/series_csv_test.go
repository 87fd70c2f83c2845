package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSeriesCSV(t *testing.T) {
	in := "\ufeffDate,Open,High,Low,Close,Volume,momentum_rsi,trend_sma_fast\n" +
		"2024-01-01,1,2,0.5,1.5,100,55.5,\n" +
		"2024-01-02,1.5,2.5,1,2,,abc,1.7\n"

	rows, err := ReadSeriesCSV(strings.NewReader(in), "BTC-USD")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "BTC-USD", rows[0].Symbol)
	assert.Equal(t, day(1), rows[0].Date)
	assert.Equal(t, 1.5, rows[0].Close.Float64)
	assert.Equal(t, 55.5, rows[0].Indicators["momentum_rsi"].Float64)
	assert.False(t, rows[0].Indicators["trend_sma_fast"].Valid)

	assert.False(t, rows[1].Volume.Valid)
	assert.False(t, rows[1].Indicators["momentum_rsi"].Valid, "non-numeric cell is missing")
	assert.Equal(t, 1.7, rows[1].Indicators["trend_sma_fast"].Float64)
	_, isIndicator := rows[1].Indicators["close"]
	assert.False(t, isIndicator)
}

func TestReadSeriesCSVSymbolColumn(t *testing.T) {
	in := "symbol,date,close\nBTC-USD,2024-01-01,1\nETH-USD,2024-01-01,2\n,2024-01-02,3\n"
	rows, err := ReadSeriesCSV(strings.NewReader(in), "DEFAULT")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "BTC-USD", rows[0].Symbol)
	assert.Equal(t, "ETH-USD", rows[1].Symbol)
	assert.Equal(t, "DEFAULT", rows[2].Symbol)
}

func TestReadSeriesCSVErrors(t *testing.T) {
	_, err := ReadSeriesCSV(strings.NewReader(""), "X")
	assert.Error(t, err)

	_, err = ReadSeriesCSV(strings.NewReader("close\n1\n"), "X")
	assert.ErrorContains(t, err, "no date column")

	_, err = ReadSeriesCSV(strings.NewReader("date,close\n2024-01-01,1\n"), "")
	assert.ErrorContains(t, err, "no symbol")

	_, err = ReadSeriesCSV(strings.NewReader("date,close\nnot-a-date,1\n"), "X")
	assert.ErrorContains(t, err, "line 2")
}
