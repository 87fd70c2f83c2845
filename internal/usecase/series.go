package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/repository"
	"FinScope/internal/services/features"
	"FinScope/pkg/logger"
)

// IngestResult summarises one import.
type IngestResult struct {
	Rows     int      `json:"rows"`
	Symbols  []string `json:"symbols"`
	Enriched []string `json:"enriched,omitempty"`
}

// SeriesUseCase imports series snapshots into a store.
type SeriesUseCase struct {
	store domrepo.SeriesWriter
	l     *logger.Logger
}

func NewSeriesUseCase(store domrepo.SeriesWriter, l *logger.Logger) *SeriesUseCase {
	if l == nil {
		l = logger.Nop()
	}
	return &SeriesUseCase{store: store, l: l}
}

// IngestOptions control an import.
type IngestOptions struct {
	// DefaultSymbol is used for rows without a symbol column.
	DefaultSymbol string
	// Replace deletes the symbols' existing rows first.
	Replace bool
	// Enrich derives indicator columns from OHLCV before storing.
	Enrich bool
}

// IngestCSV reads a CSV export and writes its rows.
func (u *SeriesUseCase) IngestCSV(ctx context.Context, r io.Reader, opts IngestOptions) (IngestResult, error) {
	start := time.Now()
	rows, err := repository.ReadSeriesCSV(r, opts.DefaultSymbol)
	if err != nil {
		return IngestResult{}, err
	}

	bySymbol := make(map[string][]models.SeriesRow)
	for _, row := range rows {
		bySymbol[row.Symbol] = append(bySymbol[row.Symbol], row)
	}
	res := IngestResult{Rows: len(rows), Symbols: make([]string, 0, len(bySymbol))}
	for sym := range bySymbol {
		res.Symbols = append(res.Symbols, sym)
	}
	sort.Strings(res.Symbols)

	for _, sym := range res.Symbols {
		batch := bySymbol[sym]
		if opts.Enrich {
			sort.SliceStable(batch, func(i, j int) bool { return batch[i].Date.Before(batch[j].Date) })
			s, added := features.Enrich(models.Series{Symbol: sym, Rows: batch}, u.l)
			batch = s.Rows
			res.Enriched = added
		}
		if opts.Replace {
			if err := u.store.DeleteSymbol(ctx, sym); err != nil {
				return res, fmt.Errorf("replace %s: %w", sym, err)
			}
		}
		if err := u.store.InsertRows(ctx, batch); err != nil {
			return res, fmt.Errorf("ingest %s: %w", sym, err)
		}
	}

	u.l.Info("series ingested",
		logger.Int("rows", res.Rows),
		logger.Strings("symbols", res.Symbols),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return res, nil
}
