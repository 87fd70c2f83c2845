package repository

import (
	"context"
	"sync"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
)

// MemoryReportStore keeps the latest report per symbol.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports map[string]*models.AnalysisReport
}

var _ domrepo.ReportStore = (*MemoryReportStore)(nil)

func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{reports: make(map[string]*models.AnalysisReport)}
}

func (s *MemoryReportStore) SaveReport(_ context.Context, r *models.AnalysisReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reports[r.Symbol] = &cp
	return nil
}

func (s *MemoryReportStore) LatestReport(_ context.Context, symbol string) (*models.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[symbol]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	cp := *r
	return &cp, nil
}
