package repository

import (
	"context"
	"sort"
	"sync"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
)

// MemorySeriesStore keeps rows in memory, keyed by symbol and ordered by date.
// It backs the CSV-driven CLI and tests. Reads return copies.
type MemorySeriesStore struct {
	mu   sync.RWMutex
	rows map[string][]models.SeriesRow
}

var _ domrepo.SeriesStore = (*MemorySeriesStore)(nil)

func NewMemorySeriesStore() *MemorySeriesStore {
	return &MemorySeriesStore{rows: make(map[string][]models.SeriesRow)}
}

func (s *MemorySeriesStore) FetchSeries(ctx context.Context, q models.SeriesQuery) ([]models.SeriesRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.rows))
	for sym := range s.rows {
		if q.Symbol == "" || sym == q.Symbol {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)

	var out []models.SeriesRow
	for _, sym := range symbols {
		for _, r := range s.rows[sym] {
			if !q.Matches(r) {
				continue
			}
			out = append(out, r.Clone())
			if q.Limit > 0 && len(out) == q.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *MemorySeriesStore) Symbols(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.rows))
	for sym := range s.rows {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}

// InsertRows upserts by (symbol, date); a later row replaces an earlier one.
func (s *MemorySeriesStore) InsertRows(ctx context.Context, rows []models.SeriesRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]struct{})
	for _, r := range rows {
		if r.Symbol == "" || r.Date.IsZero() {
			continue
		}
		existing := s.rows[r.Symbol]
		replaced := false
		for i := range existing {
			if existing[i].Date.Equal(r.Date) {
				existing[i] = r.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, r.Clone())
		}
		s.rows[r.Symbol] = existing
		touched[r.Symbol] = struct{}{}
	}
	for sym := range touched {
		rs := s.rows[sym]
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Date.Before(rs[j].Date) })
	}
	return nil
}

func (s *MemorySeriesStore) DeleteSymbol(ctx context.Context, symbol string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, symbol)
	return nil
}
