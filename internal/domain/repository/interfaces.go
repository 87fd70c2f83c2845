package repository

import (
	"context"
	"errors"
	"time"

	"FinScope/internal/domain/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrLocked is returned when a lock key is already held.
	ErrLocked = errors.New("locked")
)

// ReportStore persists finished analysis reports.
type ReportStore interface {
	SaveReport(ctx context.Context, r *models.AnalysisReport) error
	LatestReport(ctx context.Context, symbol string) (*models.AnalysisReport, error)
}

// ReportPublisher announces finished reports to downstream consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, r *models.AnalysisReport) error
}

// ReportEmitter writes report artifacts (files) and returns their locations.
type ReportEmitter interface {
	Emit(ctx context.Context, r *models.AnalysisReport) ([]string, error)
}

// RunLocker guards against concurrent runs on the same key.
type RunLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

type Metrics interface {
	RecordRun(symbol, result string)
	RecordSkipped(n int)
	RecordRetained(n int)
	RecordLatency(stage string, seconds float64)
	RecordTopScore(symbol string, score float64)
}
