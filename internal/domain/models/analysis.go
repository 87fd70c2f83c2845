package models

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// CorrelationStat is the Pearson result for one (indicator, horizon) pair.
type CorrelationStat struct {
	Correlation  float64 `json:"correlation"`
	PValue       float64 `json:"p_value"`
	Observations int     `json:"observations"`
}

// PredictiveResults maps indicator -> horizon -> retained correlation.
// Only pairs that passed both thresholds are present.
type PredictiveResults map[string]map[int]CorrelationStat

// Horizons returns the retained horizons of an indicator in ascending order.
func (r PredictiveResults) Horizons(indicator string) []int {
	byH := r[indicator]
	out := make([]int, 0, len(byH))
	for h := range byH {
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}

type IndicatorScore struct {
	Indicator string  `json:"indicator"`
	Score     float64 `json:"score"`
	Horizons  []int   `json:"horizons"`
	Group     string  `json:"group,omitempty"`
}

// CorrelationMatrix is square over Names. Cells without enough paired data are invalid.
type CorrelationMatrix struct {
	Names  []string       `json:"names"`
	Values [][]null.Float `json:"values"`
}

// At returns m[i][j].
func (m CorrelationMatrix) At(i, j int) null.Float {
	return m.Values[i][j]
}

// Index returns the position of name in the matrix, or -1.
func (m CorrelationMatrix) Index(name string) int {
	for i, n := range m.Names {
		if n == name {
			return i
		}
	}
	return -1
}

type RedundantPair struct {
	A           string  `json:"a"`
	B           string  `json:"b"`
	Correlation float64 `json:"correlation"`
}

// SkippedPair records an (indicator, horizon) pair excluded for a computational reason.
type SkippedPair struct {
	Indicator string `json:"indicator"`
	Horizon   int    `json:"horizon"`
	Reason    string `json:"reason"`
}

// PriceStats summarises the target price column and its daily returns.
type PriceStats struct {
	Count                int     `json:"count"`
	Mean                 float64 `json:"mean"`
	Std                  float64 `json:"std"`
	Min                  float64 `json:"min"`
	Q25                  float64 `json:"q25"`
	Median               float64 `json:"median"`
	Q75                  float64 `json:"q75"`
	Max                  float64 `json:"max"`
	Returns              int     `json:"returns"`
	DailyVolatility      float64 `json:"daily_volatility"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
}

type ValidationReport struct {
	Rows           int            `json:"rows"`
	MissingColumns []string       `json:"missing_columns,omitempty"`
	NullCounts     map[string]int `json:"null_counts"`
}

// Valid reports whether no required column is missing.
func (v ValidationReport) Valid() bool { return len(v.MissingColumns) == 0 }

// AnalysisParams are the resolved inputs of one run.
type AnalysisParams struct {
	TargetColumn         string   `json:"target_column"`
	Horizons             []int    `json:"horizons"`
	CorrelationThreshold float64  `json:"correlation_threshold"`
	PValueThreshold      float64  `json:"pvalue_threshold"`
	TopN                 int      `json:"top_n"`
	RedundancyThreshold  float64  `json:"redundancy_threshold"`
	Groups               []string `json:"groups,omitempty"`
	Enrich               bool     `json:"enrich"`
}

// AnalysisReport is the full output of one predictive-power run.
type AnalysisReport struct {
	ID          string            `json:"id"`
	Symbol      string            `json:"symbol"`
	GeneratedAt time.Time         `json:"generated_at"`
	Params      AnalysisParams    `json:"params"`
	Rows        int               `json:"rows"`
	Candidates  int               `json:"candidates"`
	Validation  ValidationReport  `json:"validation"`
	Stats       *PriceStats       `json:"stats,omitempty"`
	Results     PredictiveResults `json:"results"`
	Ranking     []IndicatorScore  `json:"ranking"`
	Matrix      CorrelationMatrix `json:"matrix"`
	Redundant   []RedundantPair   `json:"redundant"`
	Skipped     []SkippedPair     `json:"skipped,omitempty"`
}

// AnalysisSummary is the compact event published when a report is ready.
type AnalysisSummary struct {
	ID          string           `json:"id"`
	Symbol      string           `json:"symbol"`
	GeneratedAt time.Time        `json:"generated_at"`
	Rows        int              `json:"rows"`
	Top         []IndicatorScore `json:"top"`
	Redundant   int              `json:"redundant"`
	Skipped     int              `json:"skipped"`
}

// Summary builds the event payload for the report.
func (r *AnalysisReport) Summary() AnalysisSummary {
	return AnalysisSummary{
		ID:          r.ID,
		Symbol:      r.Symbol,
		GeneratedAt: r.GeneratedAt,
		Rows:        r.Rows,
		Top:         r.Ranking,
		Redundant:   len(r.Redundant),
		Skipped:     len(r.Skipped),
	}
}
