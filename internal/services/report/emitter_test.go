package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
)

func sampleReport() *models.AnalysisReport {
	return &models.AnalysisReport{
		ID:          "run-1",
		Symbol:      "BTC/USD",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Rows:        250,
		Results: models.PredictiveResults{
			"momentum_rsi": {1: {Correlation: -0.31, PValue: 0.001, Observations: 249}},
		},
		Ranking: []models.IndicatorScore{
			{Indicator: "momentum_rsi", Score: 0.31, Horizons: []int{1}},
			{Indicator: "trend_macd", Score: 0.2, Horizons: []int{3}},
		},
		Matrix: models.CorrelationMatrix{
			Names: []string{"momentum_rsi", "trend_macd"},
			Values: [][]null.Float{
				{null.FloatFrom(1), null.FloatFrom(0.75)},
				{null.FloatFrom(0.75), {}},
			},
		},
		Redundant: []models.RedundantPair{{A: "momentum_rsi", B: "trend_macd", Correlation: 0.75}},
	}
}

func TestFileEmitterWritesArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "analysis_output")
	e := NewFileEmitter(dir, nil)

	paths, err := e.Emit(context.Background(), sampleReport())
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "BTC_USD_indicator_importance.csv"), paths[0])

	ranking, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "Indicator,Predictive Score\nmomentum_rsi,0.310000\ntrend_macd,0.200000\n", string(ranking))

	matrix, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, ",momentum_rsi,trend_macd\nmomentum_rsi,1.000000,0.750000\ntrend_macd,0.750000,\n", string(matrix))

	raw, err := os.ReadFile(paths[2])
	require.NoError(t, err)
	var decoded models.AnalysisReport
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "run-1", decoded.ID)
	assert.Equal(t, -0.31, decoded.Results["momentum_rsi"][1].Correlation)
	assert.False(t, decoded.Matrix.Values[1][1].Valid)
}

func TestFileEmitterHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	paths, err := NewFileEmitter(t.TempDir(), nil).Emit(ctx, sampleReport())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, paths)
}

func TestWriteRankingEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRanking(&buf, nil))
	assert.Equal(t, "Indicator,Predictive Score\n", buf.String())
}
