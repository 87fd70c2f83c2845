package predictive

import (
	"sort"
	"time"

	"FinScope/internal/domain/models"
	"FinScope/pkg/logger"
)

// Options are the run parameters of the analysis.
type Options struct {
	TargetColumn         string
	Horizons             []int
	CorrelationThreshold float64
	PValueThreshold      float64
	TopN                 int
	RedundancyThreshold  float64
	// Include restricts the candidate indicators; nil keeps all of them.
	Include func(indicator string) bool
}

// DefaultOptions returns close-price targets at horizons 1, 3, 5 and 10 with
// thresholds |r| > 0.1, p < 0.05 and a top 15.
func DefaultOptions() Options {
	return Options{
		TargetColumn:         models.ColClose,
		Horizons:             []int{1, 3, 5, 10},
		CorrelationThreshold: 0.1,
		PValueThreshold:      0.05,
		TopN:                 15,
		RedundancyThreshold:  DefaultRedundancyThreshold,
	}
}

// Validate fails with ErrConfiguration on unusable parameters.
func (o Options) Validate() error {
	if o.TargetColumn == "" {
		return configf("target column is empty")
	}
	if len(o.Horizons) == 0 {
		return configf("no forward-return horizons requested")
	}
	for _, h := range o.Horizons {
		if h <= 0 {
			return configf("horizon %d is not positive", h)
		}
	}
	if o.TopN <= 0 {
		return configf("top-n %d is not positive", o.TopN)
	}
	if o.CorrelationThreshold < 0 || o.CorrelationThreshold >= 1 {
		return configf("correlation threshold %v outside [0,1)", o.CorrelationThreshold)
	}
	if o.PValueThreshold <= 0 || o.PValueThreshold > 1 {
		return configf("p-value threshold %v outside (0,1]", o.PValueThreshold)
	}
	if o.RedundancyThreshold <= 0 || o.RedundancyThreshold > 1 {
		return configf("redundancy threshold %v outside (0,1]", o.RedundancyThreshold)
	}
	return nil
}

func (o Options) horizons() []int {
	seen := make(map[int]struct{}, len(o.Horizons))
	out := make([]int, 0, len(o.Horizons))
	for _, h := range o.Horizons {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}

// Result is everything one analysis pass produces.
type Result struct {
	Candidates []string
	Forward    ForwardSeries
	Results    models.PredictiveResults
	Ranking    []models.IndicatorScore
	Matrix     models.CorrelationMatrix
	Redundant  []models.RedundantPair
	Skipped    []Skip
}

// StageObserver receives the duration of each pipeline stage.
type StageObserver func(stage string, d time.Duration)

// Analyzer runs the predictive-power pipeline over a Table.
type Analyzer struct {
	log     Logger
	observe StageObserver
}

type AnalyzerOption func(*Analyzer)

// WithStageObserver reports stage timings, e.g. to Prometheus.
func WithStageObserver(fn StageObserver) AnalyzerOption {
	return func(a *Analyzer) { a.observe = fn }
}

func NewAnalyzer(log Logger, opts ...AnalyzerOption) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	a := &Analyzer{log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs forward returns, correlation, ranking and the cross-correlation report
// in one synchronous pass. Only configuration and data-shape problems are returned as
// errors; per-pair failures end up in Result.Skipped.
func (a *Analyzer) Analyze(t *Table, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if t == nil || t.Len() == 0 {
		return nil, dataShapef("empty table")
	}
	price, ok := t.Column(opts.TargetColumn)
	if !ok || !t.Present(opts.TargetColumn) {
		return nil, dataShapef("target column %q missing", opts.TargetColumn)
	}

	var candidates []string
	for _, name := range t.Indicators() {
		if name == opts.TargetColumn {
			continue
		}
		if opts.Include != nil && !opts.Include(name) {
			continue
		}
		candidates = append(candidates, name)
	}

	res := &Result{Candidates: candidates}

	start := time.Now()
	res.Forward = ForwardReturns(price, opts.horizons())
	a.stage("forward_returns", start)

	start = time.Now()
	th := Thresholds{Correlation: opts.CorrelationThreshold, PValue: opts.PValueThreshold}
	res.Results, res.Skipped = Correlate(t, candidates, res.Forward, th, a.log)
	a.stage("correlate", start)

	start = time.Now()
	res.Ranking = Rank(res.Results, candidates, opts.TopN)
	a.stage("rank", start)

	start = time.Now()
	top := make([]string, len(res.Ranking))
	for i, s := range res.Ranking {
		top[i] = s.Indicator
	}
	res.Matrix, res.Redundant = CrossCorrelate(t, top, opts.RedundancyThreshold)
	a.stage("cross_correlate", start)

	a.log.Info("predictive analysis complete",
		logger.String("symbol", t.Symbol()),
		logger.Int("rows", t.Len()),
		logger.Int("candidates", len(candidates)),
		logger.Int("retained", len(res.Results)),
		logger.Int("ranked", len(res.Ranking)),
		logger.Int("skipped", len(res.Skipped)),
		logger.Int("redundant_pairs", len(res.Redundant)),
	)
	return res, nil
}

func (a *Analyzer) stage(name string, start time.Time) {
	d := time.Since(start)
	a.log.Debug("analysis stage done", logger.String("stage", name), logger.Duration("duration_ms", d))
	if a.observe != nil {
		a.observe(name, d)
	}
}
