package predictive

import (
	"math"
	"sort"

	"FinScope/internal/domain/models"
	"FinScope/pkg/logger"
)

// Logger is the subset of the application logger the pipeline writes to.
type Logger interface {
	Debug(msg string, fields ...logger.Field)
	Info(msg string, fields ...logger.Field)
	Warn(msg string, fields ...logger.Field)
}

// Skip is an (indicator, horizon) pair excluded for a computational reason.
type Skip = models.SkippedPair

// Thresholds decide which correlations are retained.
type Thresholds struct {
	Correlation float64 // |r| must be strictly greater
	PValue      float64 // p must be strictly smaller
}

// Retains reports whether a correlation passes both thresholds.
func (th Thresholds) Retains(s models.CorrelationStat) bool {
	return math.Abs(s.Correlation) > th.Correlation && s.PValue < th.PValue
}

// Correlate tests every indicator against every forward-return horizon and keeps the
// significant pairs. Pairs that cannot be computed are logged and returned as skips;
// they never abort the run.
func Correlate(t *Table, indicators []string, fwd ForwardSeries, th Thresholds, log Logger) (models.PredictiveResults, []Skip) {
	horizons := make([]int, 0, len(fwd))
	for h := range fwd {
		horizons = append(horizons, h)
	}
	sort.Ints(horizons)

	results := make(models.PredictiveResults)
	var skips []Skip

	for _, name := range indicators {
		col, ok := t.Column(name)
		if !ok {
			skips = append(skips, Skip{Indicator: name, Reason: "column not in table"})
			log.Warn("indicator column not in table", logger.String("indicator", name))
			continue
		}
		for _, h := range horizons {
			xs, ys := paired(col, fwd[h])
			r, p, err := pearsonTest(xs, ys)
			if err != nil {
				skips = append(skips, Skip{Indicator: name, Horizon: h, Reason: err.Error()})
				log.Warn("correlation skipped",
					logger.String("indicator", name),
					logger.Int("horizon", h),
					logger.Int("observations", len(xs)),
					logger.Error(err),
				)
				continue
			}

			stat := models.CorrelationStat{Correlation: r, PValue: p, Observations: len(xs)}
			if !th.Retains(stat) {
				continue
			}
			if results[name] == nil {
				results[name] = make(map[int]models.CorrelationStat)
			}
			results[name][h] = stat
		}
	}
	return results, skips
}
