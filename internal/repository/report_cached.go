package repository

import (
	"context"
	"errors"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/pkg/cache"
	"FinScope/pkg/logger"
)

// CachedReportStore reads through a cache in front of another ReportStore.
// Cache failures are logged and never fail the call.
type CachedReportStore struct {
	next  domrepo.ReportStore
	cache cache.Service
	ttl   time.Duration
	l     *logger.Logger
}

var _ domrepo.ReportStore = (*CachedReportStore)(nil)

func NewCachedReportStore(next domrepo.ReportStore, c cache.Service, ttl time.Duration, l *logger.Logger) *CachedReportStore {
	if l == nil {
		l = logger.Nop()
	}
	return &CachedReportStore{next: next, cache: c, ttl: ttl, l: l}
}

func reportKey(symbol string) string { return cache.Key("report", "latest", symbol) }

func (s *CachedReportStore) SaveReport(ctx context.Context, r *models.AnalysisReport) error {
	if err := s.next.SaveReport(ctx, r); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, reportKey(r.Symbol), r, s.ttl); err != nil {
		s.l.Warn("report cache set failed", logger.String("symbol", r.Symbol), logger.Error(err))
	}
	return nil
}

func (s *CachedReportStore) LatestReport(ctx context.Context, symbol string) (*models.AnalysisReport, error) {
	var cached models.AnalysisReport
	err := s.cache.Get(ctx, reportKey(symbol), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.l.Warn("report cache get failed", logger.String("symbol", symbol), logger.Error(err))
	}

	r, err := s.next.LatestReport(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, reportKey(symbol), r, s.ttl); err != nil {
		s.l.Warn("report cache set failed", logger.String("symbol", symbol), logger.Error(err))
	}
	return r, nil
}
