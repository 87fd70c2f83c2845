package features

import (
	"math"
	"sync"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/cinar/indicator/v2/volume"
	"github.com/guregu/null/v6"

	"FinScope/internal/domain/models"
	"FinScope/pkg/logger"
)

// Derived indicator columns.
const (
	SMAFast    = "trend_sma_fast"
	SMASlow    = "trend_sma_slow"
	EMAFast    = "trend_ema_fast"
	EMASlow    = "trend_ema_slow"
	MACD       = "trend_macd"
	MACDSignal = "trend_macd_signal"
	RSI        = "momentum_rsi"
	ATR        = "volatility_atr"
	OBV        = "volume_obv"
)

// Periods used by Enrich.
const (
	FastPeriod   = 12
	SlowPeriod   = 26
	SignalPeriod = 9
	RSIPeriod    = 14
)

// Enrich returns a copy of s with indicator columns derived from OHLCV. Columns the
// provider already supplied are left untouched. An indicator whose inputs have gaps
// is not computed. The names of the added columns are returned.
func Enrich(s models.Series, log *logger.Logger) (models.Series, []string) {
	if log == nil {
		log = logger.Nop()
	}
	out := s.Clone()
	if len(out.Rows) == 0 {
		return out, nil
	}

	existing := make(map[string]struct{})
	for _, name := range s.IndicatorNames() {
		existing[name] = struct{}{}
	}

	closes, closesOK := dense(out.Rows, models.ColClose)
	highs, highsOK := dense(out.Rows, models.ColHigh)
	lows, lowsOK := dense(out.Rows, models.ColLow)
	volumes, volumesOK := dense(out.Rows, models.ColVolume)

	derived := map[string][]float64{}
	if closesOK {
		derived[SMAFast] = sma(closes, FastPeriod)
		derived[SMASlow] = sma(closes, SlowPeriod)
		derived[EMAFast] = ema(closes, FastPeriod)
		derived[EMASlow] = ema(closes, SlowPeriod)
		derived[RSI] = helper.ChanToSlice(momentum.NewRsiWithPeriod[float64](RSIPeriod).Compute(helper.SliceToChan(closes)))
		derived[MACD], derived[MACDSignal] = macd(closes)
		if highsOK && lowsOK {
			atr := volatility.NewAtr[float64]()
			derived[ATR] = helper.ChanToSlice(atr.Compute(
				helper.SliceToChan(highs), helper.SliceToChan(lows), helper.SliceToChan(closes)))
		}
		if volumesOK {
			derived[OBV] = helper.ChanToSlice(volume.NewObv[float64]().Compute(
				helper.SliceToChan(closes), helper.SliceToChan(volumes)))
		}
	} else {
		log.Warn("close has gaps, skipping indicator enrichment", logger.String("symbol", s.Symbol))
	}

	var added []string
	for _, name := range []string{SMAFast, SMASlow, EMAFast, EMASlow, MACD, MACDSignal, RSI, ATR, OBV} {
		values, ok := derived[name]
		if !ok {
			continue
		}
		if _, exists := existing[name]; exists {
			continue
		}
		col := rightAlign(values, len(out.Rows))
		for i := range out.Rows {
			out.Rows[i].Indicators[name] = col[i]
		}
		added = append(added, name)
	}

	log.Debug("series enriched", logger.String("symbol", s.Symbol), logger.Strings("columns", added))
	return out, added
}

func dense(rows []models.SeriesRow, column string) ([]float64, bool) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		v, _ := r.Value(column)
		if !v.Valid {
			return nil, false
		}
		out[i] = v.Float64
	}
	return out, true
}

func sma(values []float64, period int) []float64 {
	ind := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(ind.Compute(helper.SliceToChan(values)))
}

func ema(values []float64, period int) []float64 {
	ind := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ind.Compute(helper.SliceToChan(values)))
}

// macd drains both outputs concurrently; they share an upstream and block each other.
func macd(values []float64) (line, signal []float64) {
	ind := trend.NewMacdWithPeriod[float64](FastPeriod, SlowPeriod, SignalPeriod)
	lineC, signalC := ind.Compute(helper.SliceToChan(values))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		signal = helper.ChanToSlice(signalC)
	}()
	line = helper.ChanToSlice(lineC)
	wg.Wait()
	return line, signal
}

// rightAlign places values at the end of an n-length column. Indicators emit nothing
// for their warm-up rows, so the leading cells stay missing.
func rightAlign(values []float64, n int) []null.Float {
	col := make([]null.Float, n)
	if len(values) > n {
		values = values[len(values)-n:]
	}
	offset := n - len(values)
	for i, v := range values {
		col[offset+i] = null.NewFloat(v, !math.IsNaN(v) && !math.IsInf(v, 0))
	}
	return col
}
