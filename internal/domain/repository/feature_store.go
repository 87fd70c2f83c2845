package repository

import (
	"context"

	"FinScope/internal/domain/models"
)

// SeriesProvider supplies read-only row snapshots, ascending by date per symbol.
type SeriesProvider interface {
	FetchSeries(ctx context.Context, q models.SeriesQuery) ([]models.SeriesRow, error)
	Symbols(ctx context.Context) ([]string, error)
}

// SeriesWriter persists rows. Used by ingestion.
type SeriesWriter interface {
	InsertRows(ctx context.Context, rows []models.SeriesRow) error
	DeleteSymbol(ctx context.Context, symbol string) error
}

// SeriesStore is a provider that can also be written to.
type SeriesStore interface {
	SeriesProvider
	SeriesWriter
}
