package usecase

import (
	"context"
	"strings"
	"testing"

	"FinScope/internal/domain/models"
	"FinScope/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `symbol,date,open,high,low,close,volume,momentum_rsi
BTC-USD,2024-01-02,1,2,0.5,1.5,100,40
BTC-USD,2024-01-01,1,2,0.5,1.4,90,35
ETH-USD,2024-01-01,1,2,0.5,2.5,10,60
`

func TestIngestCSV(t *testing.T) {
	store := repository.NewMemorySeriesStore()
	u := NewSeriesUseCase(store, nil)
	ctx := context.Background()

	res, err := u.IngestCSV(ctx, strings.NewReader(sampleCSV), IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, res.Symbols)

	rows, err := store.FetchSeries(ctx, models.SeriesQuery{Symbol: "BTC-USD"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1.4, rows[0].Close.Float64, "stored ascending by date")
}

func TestIngestCSVReplace(t *testing.T) {
	store := repository.NewMemorySeriesStore()
	u := NewSeriesUseCase(store, nil)
	ctx := context.Background()

	_, err := u.IngestCSV(ctx, strings.NewReader(sampleCSV), IngestOptions{})
	require.NoError(t, err)

	_, err = u.IngestCSV(ctx, strings.NewReader("date,close\n2024-03-01,9\n"), IngestOptions{DefaultSymbol: "BTC-USD", Replace: true})
	require.NoError(t, err)

	rows, err := store.FetchSeries(ctx, models.SeriesQuery{Symbol: "BTC-USD"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 9.0, rows[0].Close.Float64)

	eth, err := store.FetchSeries(ctx, models.SeriesQuery{Symbol: "ETH-USD"})
	require.NoError(t, err)
	assert.Len(t, eth, 1, "other symbols untouched")
}

func TestIngestCSVRejectsBadInput(t *testing.T) {
	u := NewSeriesUseCase(repository.NewMemorySeriesStore(), nil)
	_, err := u.IngestCSV(context.Background(), strings.NewReader("close\n1\n"), IngestOptions{DefaultSymbol: "X"})
	assert.Error(t, err)
}
