package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/pkg/cache"
	"FinScope/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/guregu/null/v6"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(symbol string) *models.AnalysisReport {
	return &models.AnalysisReport{
		ID:          "7f1c1e7a-3f2c-4d55-9a53-0b5f6a2b1c11",
		Symbol:      symbol,
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Rows:        21,
		Results: models.PredictiveResults{
			"momentum_rsi": {1: {Correlation: 0.9, PValue: 0.001, Observations: 20}, 3: {Correlation: -0.5, PValue: 0.03, Observations: 18}},
		},
		Ranking: []models.IndicatorScore{{Indicator: "momentum_rsi", Score: 0.7, Horizons: []int{1, 3}, Group: "momentum"}},
		Matrix: models.CorrelationMatrix{
			Names:  []string{"momentum_rsi"},
			Values: [][]null.Float{{null.FloatFrom(1)}},
		},
	}
}

func TestCHReportStoreSave(t *testing.T) {
	ch, mock := newMockClient(t)
	store, err := NewCHReportStore(ch, logger.Nop())
	require.NoError(t, err)
	r := sampleReport("BTC-USD")

	mock.ExpectExec(`INSERT INTO finscope\.analysis_reports`).
		WithArgs(r.ID, "BTC-USD", r.GeneratedAt, 21, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO finscope\.indicator_scores`).
		WithArgs(r.ID, "BTC-USD", r.GeneratedAt, 1, "momentum_rsi", "momentum", 0.7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO finscope\.indicator_correlations .* VALUES \(.*\),\(.*\)$`).
		WithArgs(
			r.ID, "BTC-USD", r.GeneratedAt, "momentum_rsi", 1, 0.9, 0.001, 20,
			r.ID, "BTC-USD", r.GeneratedAt, "momentum_rsi", 3, -0.5, 0.03, 18,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, store.SaveReport(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHReportStoreLatest(t *testing.T) {
	ch, mock := newMockClient(t)
	store, err := NewCHReportStore(ch, nil)
	require.NoError(t, err)

	payload, err := json.Marshal(sampleReport("BTC-USD"))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM finscope\.analysis_reports WHERE symbol = \?`).
		WithArgs("BTC-USD").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(string(payload)))
	mock.ExpectQuery(`SELECT payload`).
		WithArgs("ETH-USD").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	got, err := store.LatestReport(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.Results["momentum_rsi"][1].Correlation)
	assert.Equal(t, []int{1, 3}, got.Ranking[0].Horizons)

	_, err = store.LatestReport(context.Background(), "ETH-USD")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type countingStore struct {
	domrepo.ReportStore
	latestCalls int
}

func (c *countingStore) LatestReport(ctx context.Context, symbol string) (*models.AnalysisReport, error) {
	c.latestCalls++
	return c.ReportStore.LatestReport(ctx, symbol)
}

func newRedisCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.NewRedisCacheFromClient(client, "test"), mr
}

func TestCachedReportStoreReadsThrough(t *testing.T) {
	rc, _ := newRedisCache(t)
	inner := &countingStore{ReportStore: NewMemoryReportStore()}
	store := NewCachedReportStore(inner, rc, time.Minute, nil)
	ctx := context.Background()

	_, err := store.LatestReport(ctx, "BTC-USD")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	require.NoError(t, inner.ReportStore.SaveReport(ctx, sampleReport("BTC-USD")))
	got, err := store.LatestReport(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", got.Symbol)

	got, err = store.LatestReport(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 0.7, got.Ranking[0].Score)
	assert.Equal(t, 2, inner.latestCalls, "second read served from cache")
}

func TestCachedReportStoreSaveRefreshesCache(t *testing.T) {
	rc, mr := newRedisCache(t)
	store := NewCachedReportStore(NewMemoryReportStore(), rc, time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, store.SaveReport(ctx, sampleReport("BTC-USD")))
	assert.True(t, mr.Exists("test:report:latest:BTC-USD"))
	assert.Equal(t, time.Minute, mr.TTL("test:report:latest:BTC-USD"))
}

func TestCachedReportStoreSurvivesCacheOutage(t *testing.T) {
	rc, mr := newRedisCache(t)
	inner := NewMemoryReportStore()
	require.NoError(t, inner.SaveReport(context.Background(), sampleReport("BTC-USD")))
	store := NewCachedReportStore(inner, rc, time.Minute, nil)

	mr.Close()
	got, err := store.LatestReport(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", got.Symbol)
}

func TestCacheLocker(t *testing.T) {
	rc, _ := newRedisCache(t)
	locker := NewCacheLocker(rc, nil)
	ctx := context.Background()

	release, err := locker.TryLock(ctx, "analysis:BTC-USD", time.Minute)
	require.NoError(t, err)

	_, err = locker.TryLock(ctx, "analysis:BTC-USD", time.Minute)
	assert.ErrorIs(t, err, domrepo.ErrLocked)

	release()
	release2, err := locker.TryLock(ctx, "analysis:BTC-USD", time.Minute)
	require.NoError(t, err)
	release2()
}

type capturePublisher struct {
	topic string
	key   []byte
	value interface{}
	err   error
}

func (c *capturePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	c.topic, c.key, c.value = topic, key, value
	return c.err
}

func TestKafkaReportPublisher(t *testing.T) {
	pub := &capturePublisher{}
	p := NewKafkaReportPublisher(pub, "finscope.reports")

	require.NoError(t, p.PublishReport(context.Background(), sampleReport("BTC-USD")))
	assert.Equal(t, "finscope.reports", pub.topic)
	assert.Equal(t, []byte("BTC-USD"), pub.key)
	summary, ok := pub.value.(models.AnalysisSummary)
	require.True(t, ok)
	assert.Equal(t, 21, summary.Rows)
	assert.Len(t, summary.Top, 1)

	pub.err = errors.New("broker down")
	assert.Error(t, p.PublishReport(context.Background(), sampleReport("BTC-USD")))
}
