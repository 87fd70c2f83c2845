// Package performance computes strategy and prediction quality metrics.
// It is independent of the predictive-power pipeline.
package performance

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrInsufficientData = errors.New("insufficient data")

type TradingMetrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualReturn     float64 `json:"annual_return"`
	AnnualVolatility float64 `json:"annual_volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	CalmarRatio      float64 `json:"calmar_ratio"`
	WinRate          float64 `json:"win_rate"`
	ProfitFactor     float64 `json:"profit_factor"`
}

// Trading computes metrics over periodic returns. riskFree is annual; periodsPerYear
// is 252 for daily bars. Ratios with a zero denominator are reported as 0.
func Trading(returns []float64, riskFree float64, periodsPerYear int) (TradingMetrics, error) {
	var m TradingMetrics
	if len(returns) < 2 {
		return m, ErrInsufficientData
	}
	if periodsPerYear <= 0 {
		periodsPerYear = 252
	}
	ppy := float64(periodsPerYear)

	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	m.TotalReturn = growth - 1

	mean, std := stat.PopMeanStdDev(returns, nil)
	m.AnnualReturn = math.Pow(1+mean, ppy) - 1
	m.AnnualVolatility = std * math.Sqrt(ppy)

	excess := mean - (math.Pow(1+riskFree, 1/ppy) - 1)
	m.SharpeRatio = ratio(math.Sqrt(ppy)*excess, std)

	var down, wins []float64
	for _, r := range returns {
		switch {
		case r < 0:
			down = append(down, r)
		case r > 0:
			wins = append(wins, r)
		}
	}
	if len(down) > 1 {
		_, downStd := stat.PopMeanStdDev(down, nil)
		m.SortinoRatio = ratio(math.Sqrt(ppy)*excess, downStd)
	}

	m.MaxDrawdown = MaxDrawdown(returns)
	m.CalmarRatio = ratio(m.AnnualReturn, math.Abs(m.MaxDrawdown))
	m.WinRate = float64(len(wins)) / float64(len(returns))
	m.ProfitFactor = ratio(floats.Sum(wins), math.Abs(floats.Sum(down)))
	return m, nil
}

// MaxDrawdown returns the deepest peak-to-trough fall of the compounded equity curve (<= 0).
func MaxDrawdown(returns []float64) float64 {
	equity, peak, worst := 1.0, 1.0, 0.0
	for i, r := range returns {
		equity *= 1 + r
		if i == 0 || equity > peak {
			peak = equity
		}
		if dd := equity/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

type PredictionMetrics struct {
	MSE                 float64 `json:"mse"`
	RMSE                float64 `json:"rmse"`
	MAE                 float64 `json:"mae"`
	R2                  float64 `json:"r2"`
	DirectionalAccuracy float64 `json:"directional_accuracy"`
	MAPE                float64 `json:"mape"`
	HitRate             float64 `json:"hit_rate"`
}

// EvaluatePredictions compares predicted values with what was observed.
// MAPE ignores observations equal to zero.
func EvaluatePredictions(actual, predicted []float64) (PredictionMetrics, error) {
	var m PredictionMetrics
	if len(actual) == 0 || len(actual) != len(predicted) {
		return m, ErrInsufficientData
	}
	n := float64(len(actual))

	var sse, sae, ape float64
	var sameSign, hits, apeN int
	for i, a := range actual {
		p := predicted[i]
		d := a - p
		sse += d * d
		sae += math.Abs(d)
		if a != 0 {
			ape += math.Abs(d / a)
			apeN++
		}
		if sign(a) == sign(p) {
			sameSign++
		}
		if a*p > 0 {
			hits++
		}
	}

	m.MSE = sse / n
	m.RMSE = math.Sqrt(m.MSE)
	m.MAE = sae / n
	mean := stat.Mean(actual, nil)
	var sst float64
	for _, a := range actual {
		sst += (a - mean) * (a - mean)
	}
	if sst > 0 {
		m.R2 = 1 - sse/sst
	}
	m.DirectionalAccuracy = float64(sameSign) / n
	if apeN > 0 {
		m.MAPE = ape / float64(apeN) * 100
	}
	m.HitRate = float64(hits) / n
	return m, nil
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}
