package usecase

import (
	"fmt"

	"FinScope/internal/domain/models"
	"FinScope/internal/services/performance"
)

// PerformanceResult bundles strategy metrics and, when predictions were supplied,
// their quality against actual values.
type PerformanceResult struct {
	Trading     performance.TradingMetrics     `json:"trading"`
	Predictions *performance.PredictionMetrics `json:"predictions,omitempty"`
}

// EvaluatePerformance computes metrics for a returns series.
func EvaluatePerformance(req models.PerformanceRequest) (PerformanceResult, error) {
	var out PerformanceResult
	tm, err := performance.Trading(req.Returns, req.RiskFreeRate, req.PeriodsPerYear)
	if err != nil {
		return out, fmt.Errorf("%w: trading metrics: %v", ErrInvalidRequest, err)
	}
	out.Trading = tm

	if len(req.Predictions) > 0 || len(req.Actuals) > 0 {
		pm, err := performance.EvaluatePredictions(req.Actuals, req.Predictions)
		if err != nil {
			return out, fmt.Errorf("%w: prediction metrics: %v", ErrInvalidRequest, err)
		}
		out.Predictions = &pm
	}
	return out, nil
}
