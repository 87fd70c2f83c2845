package features

import (
	"math"
	"sort"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"

	"FinScope/internal/domain/models"
)

// TradingDaysPerYear annualises daily volatility.
const TradingDaysPerYear = 252

// PctChange returns r_t = C_t / C_{t-1} - 1 for every consecutive pair of present,
// non-zero prices. Pairs broken by a missing price are dropped.
func PctChange(prices []null.Float) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if !prev.Valid || !cur.Valid || prev.Float64 == 0 {
			continue
		}
		out = append(out, cur.Float64/prev.Float64-1)
	}
	return out
}

// PriceStats describes the price column and the volatility of its daily returns.
// ok is false when fewer than two prices are present.
func PriceStats(prices []null.Float) (s models.PriceStats, ok bool) {
	vals := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p.Valid && !math.IsNaN(p.Float64) && !math.IsInf(p.Float64, 0) {
			vals = append(vals, p.Float64)
		}
	}
	if len(vals) < 2 {
		return s, false
	}

	s.Count = len(vals)
	s.Mean, s.Std = stat.MeanStdDev(vals, nil)

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q25 = quantile(sorted, 0.25)
	s.Median = quantile(sorted, 0.5)
	s.Q75 = quantile(sorted, 0.75)

	returns := PctChange(prices)
	s.Returns = len(returns)
	if len(returns) >= 2 {
		s.DailyVolatility = stat.StdDev(returns, nil)
		s.AnnualizedVolatility = s.DailyVolatility * math.Sqrt(TradingDaysPerYear)
	}
	return s, true
}

// quantile interpolates linearly between closest ranks (h = (n-1)p) over sorted data.
func quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
