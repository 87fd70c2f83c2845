package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	pkgch "FinScope/pkg/clickhouse"
	"FinScope/pkg/logger"

	"github.com/guregu/null/v6"
)

const insertChunkSize = 2000

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SeriesSchema returns the DDL for a series table. Indicators live in a Map column;
// an absent key is a missing cell.
func SeriesSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    symbol      LowCardinality(String),
    date        DateTime('UTC'),
    open        Nullable(Float64),
    high        Nullable(Float64),
    low         Nullable(Float64),
    close       Nullable(Float64),
    volume      Nullable(Float64),
    indicators  Map(String, Float64),
    ingested_at DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(ingested_at)
ORDER BY (symbol, date)`, database, table),
	}
}

// CHSeriesStore implements SeriesStore backed by ClickHouse.
type CHSeriesStore struct {
	db    *sql.DB
	table string
	l     *logger.Logger
}

var _ domrepo.SeriesStore = (*CHSeriesStore)(nil)

// NewCHSeriesStore binds the store to database.table.
func NewCHSeriesStore(ch *pkgch.Client, table string, l *logger.Logger) (*CHSeriesStore, error) {
	full := table
	if !strings.Contains(table, ".") && ch.Database() != "" {
		full = ch.Database() + "." + table
	}
	if !identRe.MatchString(full) {
		return nil, fmt.Errorf("invalid table name %q", full)
	}
	if l == nil {
		l = logger.Nop()
	}
	return &CHSeriesStore{db: ch.DB(), table: full, l: l}, nil
}

func (s *CHSeriesStore) FetchSeries(ctx context.Context, q models.SeriesQuery) ([]models.SeriesRow, error) {
	start := time.Now()

	var (
		where []string
		args  []interface{}
	)
	if q.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, q.Symbol)
	}
	if !q.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, q.To.UTC())
	}

	query := fmt.Sprintf("SELECT symbol, date, open, high, low, close, volume, indicators FROM %s FINAL", s.table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY symbol ASC, date ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.l.Error("clickhouse fetch_series query error",
			logger.String("table", s.table),
			logger.String("symbol", q.Symbol),
			logger.Error(err),
		)
		return nil, fmt.Errorf("fetch series: %w", err)
	}
	defer rows.Close()

	out := make([]models.SeriesRow, 0, 1024)
	for rows.Next() {
		var (
			r   models.SeriesRow
			ind map[string]float64
		)
		if err := rows.Scan(&r.Symbol, &r.Date, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume, &ind); err != nil {
			s.l.Error("clickhouse fetch_series scan error",
				logger.String("table", s.table),
				logger.String("symbol", q.Symbol),
				logger.Error(err),
			)
			return nil, fmt.Errorf("scan series row: %w", err)
		}
		r.Date = r.Date.UTC()
		r.Indicators = make(map[string]null.Float, len(ind))
		for k, v := range ind {
			r.Indicators[k] = null.FloatFrom(v)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.l.Error("clickhouse fetch_series rows error",
			logger.String("table", s.table),
			logger.String("symbol", q.Symbol),
			logger.Error(err),
		)
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("clickhouse fetch_series ok",
		logger.String("table", s.table),
		logger.String("symbol", q.Symbol),
		logger.Int("rows", len(out)),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHSeriesStore) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT symbol FROM %s ORDER BY symbol", s.table))
	if err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// InsertRows writes rows in multi-row VALUES chunks. Missing indicator cells are omitted from the map.
func (s *CHSeriesStore) InsertRows(ctx context.Context, rows []models.SeriesRow) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	for lo := 0; lo < len(rows); lo += insertChunkSize {
		hi := lo + insertChunkSize
		if hi > len(rows) {
			hi = len(rows)
		}

		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*8)
		for _, r := range rows[lo:hi] {
			if r.Symbol == "" || r.Date.IsZero() {
				continue
			}
			ind := make(map[string]float64, len(r.Indicators))
			for k, v := range r.Indicators {
				if v.Valid {
					ind[k] = v.Float64
				}
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, r.Symbol, r.Date.UTC(), r.Open, r.High, r.Low, r.Close, r.Volume, ind)
		}
		if len(values) == 0 {
			continue
		}

		q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, volume, indicators) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse insert_rows error",
				logger.String("table", s.table),
				logger.Int("rows", len(values)),
				logger.Error(err),
			)
			return fmt.Errorf("insert rows: %w", err)
		}
	}
	s.l.Info("clickhouse insert_rows ok",
		logger.String("table", s.table),
		logger.Int("rows", len(rows)),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHSeriesStore) DeleteSymbol(ctx context.Context, symbol string) error {
	if symbol == "" {
		return fmt.Errorf("delete symbol: empty symbol")
	}
	q := fmt.Sprintf("ALTER TABLE %s DELETE WHERE symbol = ?", s.table)
	if _, err := s.db.ExecContext(ctx, q, symbol); err != nil {
		return fmt.Errorf("delete symbol %s: %w", symbol, err)
	}
	s.l.Info("clickhouse delete_symbol ok", logger.String("table", s.table), logger.String("symbol", symbol))
	return nil
}
