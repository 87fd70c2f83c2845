package models

import "time"

// Requests for the analysis HTTP endpoints and the Kafka request topic.

type AnalysisRequest struct {
	Symbol               string     `json:"symbol" validate:"required"`
	From                 *time.Time `json:"from,omitempty"`
	To                   *time.Time `json:"to,omitempty"`
	Horizons             []int      `json:"horizons,omitempty" validate:"omitempty,dive,gte=1"`
	TopN                 int        `json:"top_n,omitempty" validate:"gte=0,lte=500"`
	CorrelationThreshold *float64   `json:"correlation_threshold,omitempty" validate:"omitempty,gte=0,lt=1"`
	PValueThreshold      *float64   `json:"pvalue_threshold,omitempty" validate:"omitempty,gt=0,lte=1"`
	Groups               []string   `json:"groups,omitempty" validate:"omitempty,dive,oneof=trend momentum volatility volume"`
	Enrich               *bool      `json:"enrich,omitempty"`
}

type LatestReportRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type SymbolsRequest struct {
	Limit int `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=10000"`
}

type PerformanceRequest struct {
	Returns        []float64 `json:"returns" validate:"required,min=2"`
	RiskFreeRate   float64   `json:"risk_free_rate" default:"0.02" validate:"gte=0,lt=1"`
	PeriodsPerYear int       `json:"periods_per_year" default:"252" validate:"gte=1"`
	Predictions    []float64 `json:"predictions,omitempty"`
	Actuals        []float64 `json:"actuals,omitempty" validate:"omitempty,eqfield=Predictions"`
}
