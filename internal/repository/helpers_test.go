package repository

import (
	"database/sql/driver"
	"testing"
	"time"

	"FinScope/internal/domain/models"
	pkgch "FinScope/pkg/clickhouse"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/require"
)

// mapConverter lets Map(String, Float64) arguments through like the ClickHouse driver does.
type mapConverter struct{}

func (mapConverter) ConvertValue(v interface{}) (driver.Value, error) {
	if m, ok := v.(map[string]float64); ok {
		return m, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMockClient(t *testing.T) (*pkgch.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(mapConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return pkgch.NewClientFromDB(db, "finscope"), mock
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func row(symbol string, d int, close float64, ind map[string]float64) models.SeriesRow {
	r := models.SeriesRow{
		Symbol:     symbol,
		Date:       day(d),
		Close:      null.FloatFrom(close),
		Indicators: make(map[string]null.Float, len(ind)),
	}
	for k, v := range ind {
		r.Indicators[k] = null.FloatFrom(v)
	}
	return r
}
