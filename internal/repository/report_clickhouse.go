package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	pkgch "FinScope/pkg/clickhouse"
	"FinScope/pkg/logger"
)

// ReportSchema returns the DDL for the report tables.
func ReportSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.analysis_reports (
    id           UUID,
    symbol       LowCardinality(String),
    generated_at DateTime64(3, 'UTC'),
    rows         UInt32,
    retained     UInt32,
    payload      String
) ENGINE = MergeTree
ORDER BY (symbol, generated_at)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.indicator_scores (
    report_id    UUID,
    symbol       LowCardinality(String),
    generated_at DateTime64(3, 'UTC'),
    rank         UInt16,
    indicator    String,
    feature_group LowCardinality(String),
    score        Float64
) ENGINE = MergeTree
ORDER BY (symbol, generated_at, rank)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.indicator_correlations (
    report_id    UUID,
    symbol       LowCardinality(String),
    generated_at DateTime64(3, 'UTC'),
    indicator    String,
    horizon      UInt16,
    correlation  Float64,
    p_value      Float64,
    observations UInt32
) ENGINE = MergeTree
ORDER BY (symbol, generated_at, indicator, horizon)`, database),
	}
}

// CHReportStore keeps every report: the full JSON payload plus flattened
// score and correlation rows for ad-hoc querying.
type CHReportStore struct {
	db       *sql.DB
	database string
	l        *logger.Logger
}

var _ domrepo.ReportStore = (*CHReportStore)(nil)

func NewCHReportStore(ch *pkgch.Client, l *logger.Logger) (*CHReportStore, error) {
	if !identRe.MatchString(ch.Database()) {
		return nil, fmt.Errorf("invalid database name %q", ch.Database())
	}
	if l == nil {
		l = logger.Nop()
	}
	return &CHReportStore{db: ch.DB(), database: ch.Database(), l: l}, nil
}

func (s *CHReportStore) SaveReport(ctx context.Context, r *models.AnalysisReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	at := r.GeneratedAt.UTC()

	retained := 0
	for _, byH := range r.Results {
		retained += len(byH)
	}

	q := fmt.Sprintf("INSERT INTO %s.analysis_reports (id, symbol, generated_at, rows, retained, payload) VALUES (?, ?, ?, ?, ?, ?)", s.database)
	if _, err := s.db.ExecContext(ctx, q, r.ID, r.Symbol, at, r.Rows, retained, string(payload)); err != nil {
		s.l.Error("clickhouse save_report error", logger.String("symbol", r.Symbol), logger.Error(err))
		return fmt.Errorf("insert report: %w", err)
	}

	if len(r.Ranking) > 0 {
		values := make([]string, 0, len(r.Ranking))
		args := make([]interface{}, 0, len(r.Ranking)*7)
		for i, sc := range r.Ranking {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, r.ID, r.Symbol, at, i+1, sc.Indicator, sc.Group, sc.Score)
		}
		q := fmt.Sprintf("INSERT INTO %s.indicator_scores (report_id, symbol, generated_at, rank, indicator, feature_group, score) VALUES %s",
			s.database, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert scores: %w", err)
		}
	}

	if retained > 0 {
		names := make([]string, 0, len(r.Results))
		for name := range r.Results {
			names = append(names, name)
		}
		sort.Strings(names)

		values := make([]string, 0, retained)
		args := make([]interface{}, 0, retained*8)
		for _, name := range names {
			for _, h := range r.Results.Horizons(name) {
				st := r.Results[name][h]
				values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
				args = append(args, r.ID, r.Symbol, at, name, h, st.Correlation, st.PValue, st.Observations)
			}
		}
		q := fmt.Sprintf("INSERT INTO %s.indicator_correlations (report_id, symbol, generated_at, indicator, horizon, correlation, p_value, observations) VALUES %s",
			s.database, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert correlations: %w", err)
		}
	}

	s.l.Info("clickhouse save_report ok",
		logger.String("id", r.ID),
		logger.String("symbol", r.Symbol),
		logger.Int("ranked", len(r.Ranking)),
		logger.Int("retained", retained),
	)
	return nil
}

func (s *CHReportStore) LatestReport(ctx context.Context, symbol string) (*models.AnalysisReport, error) {
	start := time.Now()
	q := fmt.Sprintf("SELECT payload FROM %s.analysis_reports WHERE symbol = ? ORDER BY generated_at DESC LIMIT 1", s.database)

	var payload string
	if err := s.db.QueryRowContext(ctx, q, symbol).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("latest report: %w", err)
	}

	var r models.AnalysisReport
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	s.l.Debug("clickhouse latest_report ok",
		logger.String("symbol", symbol),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return &r, nil
}
