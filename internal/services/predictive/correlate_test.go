package predictive

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
	"FinScope/pkg/logger"
)

var defaultThresholds = Thresholds{Correlation: 0.1, PValue: 0.05}

func TestThresholdsRetainStrongSignificantOnly(t *testing.T) {
	strong := models.CorrelationStat{Correlation: 0.9, PValue: 0.01}
	weak := models.CorrelationStat{Correlation: 0.05, PValue: 0.01}
	insignificant := models.CorrelationStat{Correlation: -0.6, PValue: 0.2}

	assert.True(t, defaultThresholds.Retains(strong))
	assert.False(t, defaultThresholds.Retains(weak))
	assert.False(t, defaultThresholds.Retains(insignificant))
	assert.False(t, defaultThresholds.Retains(models.CorrelationStat{Correlation: 0.1, PValue: 0.01}), "bound is strict")
	assert.False(t, defaultThresholds.Retains(models.CorrelationStat{Correlation: 0.5, PValue: 0.05}), "bound is strict")
}

func TestCorrelateKeepsSignalDropsNoise(t *testing.T) {
	closes, signs, orthogonal := signSeries()
	tbl := mustTable(makeSeries("BTC-USD", closes, map[string][]null.Float{
		"signal": signs,
		"noise":  orthogonal,
	}))
	price, _ := tbl.Column("close")
	fwd := ForwardReturns(price, []int{1})

	results, skips := Correlate(tbl, tbl.Indicators(), fwd, defaultThresholds, logger.Nop())

	assert.Empty(t, skips)
	require.Contains(t, results, "signal")
	assert.NotContains(t, results, "noise")

	stat := results["signal"][1]
	assert.InDelta(t, 1, stat.Correlation, 1e-9)
	assert.Less(t, stat.PValue, 1e-6)
	assert.Equal(t, 20, stat.Observations)
}

func TestCorrelateMissingIndicatorIsSkippedNotFatal(t *testing.T) {
	closes, signs, _ := signSeries()
	empty := make([]null.Float, len(closes))
	single := make([]null.Float, len(closes))
	single[3] = null.FloatFrom(1)

	tbl := mustTable(makeSeries("BTC-USD", closes, map[string][]null.Float{
		"signal": signs,
		"empty":  empty,
		"single": single,
	}))
	price, _ := tbl.Column("close")
	fwd := ForwardReturns(price, []int{1, 3})

	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, zerolog.WarnLevel)

	var (
		results models.PredictiveResults
		skips   []Skip
	)
	require.NotPanics(t, func() {
		results, skips = Correlate(tbl, tbl.Indicators(), fwd, defaultThresholds, log)
	})

	assert.NotContains(t, results, "empty")
	assert.NotContains(t, results, "single")
	assert.Contains(t, results, "signal")

	skipped := map[string][]int{}
	for _, s := range skips {
		skipped[s.Indicator] = append(skipped[s.Indicator], s.Horizon)
	}
	assert.ElementsMatch(t, []int{1, 3}, skipped["empty"])
	assert.ElementsMatch(t, []int{1, 3}, skipped["single"])
	assert.Contains(t, buf.String(), "correlation skipped")
}

func TestCorrelateConstantIndicatorSkipped(t *testing.T) {
	closes, _, _ := signSeries()
	flat := make([]null.Float, len(closes))
	for i := range flat {
		flat[i] = null.FloatFrom(42)
	}
	tbl := mustTable(makeSeries("ETH-USD", closes, map[string][]null.Float{"flat": flat}))
	price, _ := tbl.Column("close")

	results, skips := Correlate(tbl, []string{"flat", "absent"}, ForwardReturns(price, []int{1}), defaultThresholds, logger.Nop())

	assert.Empty(t, results)
	require.Len(t, skips, 2)
	assert.Equal(t, Skip{Indicator: "flat", Horizon: 1, Reason: errConstant.Error()}, skips[0])
	assert.Equal(t, "absent", skips[1].Indicator)
}

func TestCorrelateInvariantsOnRandomData(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n := 120
	closes := make([]float64, n)
	closes[0] = 100
	for i := 1; i < n; i++ {
		closes[i] = closes[i-1] * (1 + rng.NormFloat64()*0.02)
	}

	indicators := map[string][]null.Float{}
	for k, name := range []string{"a", "b", "c", "d", "e", "f"} {
		col := make([]null.Float, n)
		for i := 0; i < n; i++ {
			if rng.Float64() < 0.15 {
				continue
			}
			v := rng.NormFloat64()
			if i+1 < n {
				// mix in the next-step return with a growing weight
				v += float64(k) * 20 * (closes[i+1]/closes[i] - 1)
			}
			col[i] = null.FloatFrom(v)
		}
		indicators[name] = col
	}
	tbl := mustTable(makeSeries("SPY", closes, indicators))
	price, _ := tbl.Column("close")

	th := Thresholds{Correlation: 0.15, PValue: 0.01}
	results, _ := Correlate(tbl, tbl.Indicators(), ForwardReturns(price, []int{1, 3, 5, 10}), th, logger.Nop())

	require.NotEmpty(t, results)
	for name, byH := range results {
		require.NotEmpty(t, byH, name)
		for h, s := range byH {
			assert.GreaterOrEqual(t, s.Observations, 2, "%s/%d", name, h)
			assert.Greater(t, math.Abs(s.Correlation), th.Correlation, "%s/%d", name, h)
			assert.Less(t, s.PValue, th.PValue, "%s/%d", name, h)
			assert.LessOrEqual(t, math.Abs(s.Correlation), 1.0)
		}
	}
}
