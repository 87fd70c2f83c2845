package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/services/features"
	"FinScope/internal/services/predictive"
	"FinScope/pkg/config"
	"FinScope/pkg/logger"

	"github.com/google/uuid"
)

var (
	// ErrAnalysisInProgress is returned when another run holds the symbol's lock.
	ErrAnalysisInProgress = errors.New("analysis already running for symbol")
	ErrInvalidRequest     = errors.New("invalid analysis request")
)

// Run results recorded in metrics.
const (
	resultOK        = "ok"
	resultLocked    = "locked"
	resultInvalid   = "invalid"
	resultDataError = "data_error"
	resultError     = "error"
)

// AnalysisUseCase fetches a series snapshot, runs the predictive-power pipeline and
// hands the report to storage, the event stream and the file emitter.
type AnalysisUseCase struct {
	provider  domrepo.SeriesProvider
	reports   domrepo.ReportStore
	publisher domrepo.ReportPublisher
	emitter   domrepo.ReportEmitter
	locker    domrepo.RunLocker
	metrics   domrepo.Metrics
	analyzer  *predictive.Analyzer

	cfg        config.Analysis
	groups     map[string][]string
	groupNames []string
	lockTTL    time.Duration
	l          *logger.Logger
	now        func() time.Time
	newID      func() string
}

type AnalysisOption func(*AnalysisUseCase)

func WithReportStore(s domrepo.ReportStore) AnalysisOption {
	return func(u *AnalysisUseCase) { u.reports = s }
}

func WithReportPublisher(p domrepo.ReportPublisher) AnalysisOption {
	return func(u *AnalysisUseCase) { u.publisher = p }
}

func WithReportEmitter(e domrepo.ReportEmitter) AnalysisOption {
	return func(u *AnalysisUseCase) { u.emitter = e }
}

// WithRunLocker serialises runs per symbol; ttl bounds a lock left by a crashed run.
func WithRunLocker(lk domrepo.RunLocker, ttl time.Duration) AnalysisOption {
	return func(u *AnalysisUseCase) {
		u.locker = lk
		u.lockTTL = ttl
	}
}

func WithMetrics(m domrepo.Metrics) AnalysisOption {
	return func(u *AnalysisUseCase) { u.metrics = m }
}

func WithClock(now func() time.Time) AnalysisOption {
	return func(u *AnalysisUseCase) { u.now = now }
}

func NewAnalysisUseCase(provider domrepo.SeriesProvider, cfg *config.Config, l *logger.Logger, opts ...AnalysisOption) *AnalysisUseCase {
	if l == nil {
		l = logger.Nop()
	}
	u := &AnalysisUseCase{
		provider: provider,
		cfg:      cfg.Analysis,
		groups:   cfg.FeatureGroups,
		lockTTL:  5 * time.Minute,
		l:        l,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for g := range u.groups {
		u.groupNames = append(u.groupNames, g)
	}
	sort.Strings(u.groupNames)
	for _, opt := range opts {
		opt(u)
	}
	if u.metrics == nil {
		u.metrics = nopMetrics{}
	}
	u.analyzer = predictive.NewAnalyzer(l, predictive.WithStageObserver(func(stage string, d time.Duration) {
		u.metrics.RecordLatency(stage, d.Seconds())
	}))
	return u
}

// Run executes one analysis. The request's unset fields fall back to configuration.
func (u *AnalysisUseCase) Run(ctx context.Context, req models.AnalysisRequest) (report *models.AnalysisReport, err error) {
	start := u.now()
	symbol := req.Symbol
	if symbol == "" {
		symbol = u.cfg.DefaultSymbol
	}
	defer func() { u.metrics.RecordRun(symbol, runResult(err)) }()

	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return nil, fmt.Errorf("%w: from is after to", ErrInvalidRequest)
	}
	params, err := u.resolve(req)
	if err != nil {
		return nil, err
	}
	opts := predictive.Options{
		TargetColumn:         params.TargetColumn,
		Horizons:             params.Horizons,
		CorrelationThreshold: params.CorrelationThreshold,
		PValueThreshold:      params.PValueThreshold,
		TopN:                 params.TopN,
		RedundancyThreshold:  params.RedundancyThreshold,
		Include:              u.groupFilter(params.Groups),
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if u.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.Timeout)
		defer cancel()
	}

	if u.locker != nil {
		release, err := u.locker.TryLock(ctx, "analysis:"+symbol, u.lockTTL)
		if errors.Is(err, domrepo.ErrLocked) {
			return nil, fmt.Errorf("%w: %s", ErrAnalysisInProgress, symbol)
		}
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		defer release()
	}

	q := models.SeriesQuery{Symbol: symbol}
	if req.From != nil {
		q.From = *req.From
	}
	if req.To != nil {
		q.To = *req.To
	}
	rows, err := u.provider.FetchSeries(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch series %s: %w", symbol, err)
	}
	series := models.Series{Symbol: symbol, Rows: rows}
	validation := predictive.Validate(series, []string{params.TargetColumn})
	if !validation.Valid() {
		u.l.Warn("series failed validation",
			logger.String("symbol", symbol),
			logger.Strings("missing", validation.MissingColumns),
			logger.Int("rows", validation.Rows),
		)
	}

	if params.Enrich {
		var added []string
		series, added = features.Enrich(series, u.l)
		u.l.Debug("enriched series", logger.String("symbol", symbol), logger.Strings("added", added))
	}

	table, err := predictive.NewTable(series)
	if err != nil {
		return nil, err
	}
	res, err := u.analyzer.Analyze(table, opts)
	if err != nil {
		return nil, err
	}

	report = &models.AnalysisReport{
		ID:          u.newID(),
		Symbol:      symbol,
		GeneratedAt: u.now().UTC(),
		Params:      params,
		Rows:        table.Len(),
		Candidates:  len(res.Candidates),
		Validation:  validation,
		Results:     res.Results,
		Ranking:     res.Ranking,
		Matrix:      res.Matrix,
		Redundant:   res.Redundant,
		Skipped:     res.Skipped,
	}
	for i := range report.Ranking {
		report.Ranking[i].Group = u.groupOf(report.Ranking[i].Indicator)
	}
	if price, ok := table.Column(params.TargetColumn); ok {
		if st, ok := features.PriceStats(price); ok {
			report.Stats = &st
			u.l.Info("price statistics",
				logger.String("symbol", symbol),
				logger.Float64("mean", st.Mean),
				logger.Float64("daily_volatility", st.DailyVolatility),
				logger.Float64("annualized_volatility", st.AnnualizedVolatility),
			)
		}
	}

	u.record(report)
	if err := u.deliver(ctx, report); err != nil {
		return report, err
	}

	u.l.Info("analysis run complete",
		logger.String("id", report.ID),
		logger.String("symbol", symbol),
		logger.Int("rows", report.Rows),
		logger.Int("ranked", len(report.Ranking)),
		logger.Duration("duration_ms", u.now().Sub(start)),
	)
	return report, nil
}

// LatestReport returns the most recent stored report for symbol.
func (u *AnalysisUseCase) LatestReport(ctx context.Context, symbol string) (*models.AnalysisReport, error) {
	if u.reports == nil {
		return nil, domrepo.ErrNotFound
	}
	return u.reports.LatestReport(ctx, symbol)
}

// Symbols lists at most limit symbols known to the provider.
func (u *AnalysisUseCase) Symbols(ctx context.Context, limit int) ([]string, error) {
	syms, err := u.provider.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	if limit > 0 && len(syms) > limit {
		syms = syms[:limit]
	}
	return syms, nil
}

func (u *AnalysisUseCase) resolve(req models.AnalysisRequest) (models.AnalysisParams, error) {
	p := models.AnalysisParams{
		TargetColumn:         u.cfg.TargetColumn,
		Horizons:             append([]int(nil), u.cfg.Horizons...),
		CorrelationThreshold: u.cfg.CorrelationThreshold,
		PValueThreshold:      u.cfg.PValueThreshold,
		TopN:                 u.cfg.TopN,
		RedundancyThreshold:  u.cfg.RedundancyThreshold,
		Groups:               append([]string(nil), u.cfg.Groups...),
		Enrich:               u.cfg.Enrich,
	}
	if len(req.Horizons) > 0 {
		p.Horizons = append([]int(nil), req.Horizons...)
	}
	if req.TopN > 0 {
		p.TopN = req.TopN
	}
	if req.CorrelationThreshold != nil {
		p.CorrelationThreshold = *req.CorrelationThreshold
	}
	if req.PValueThreshold != nil {
		p.PValueThreshold = *req.PValueThreshold
	}
	if len(req.Groups) > 0 {
		p.Groups = append([]string(nil), req.Groups...)
	}
	if req.Enrich != nil {
		p.Enrich = *req.Enrich
	}
	for _, g := range p.Groups {
		if _, ok := u.groups[g]; !ok {
			return p, &predictive.AnalysisError{Kind: predictive.ErrConfiguration, Msg: fmt.Sprintf("unknown feature group %q", g)}
		}
	}
	return p, nil
}

// groupFilter keeps indicators listed in any of the groups; nil when no group is selected.
func (u *AnalysisUseCase) groupFilter(groups []string) func(string) bool {
	if len(groups) == 0 {
		return nil
	}
	allowed := make(map[string]struct{})
	for _, g := range groups {
		for _, col := range u.groups[g] {
			allowed[col] = struct{}{}
		}
	}
	return func(name string) bool {
		_, ok := allowed[name]
		return ok
	}
}

// groupOf returns the first group, by name, that lists indicator.
func (u *AnalysisUseCase) groupOf(indicator string) string {
	for _, g := range u.groupNames {
		for _, c := range u.groups[g] {
			if c == indicator {
				return g
			}
		}
	}
	return ""
}

func (u *AnalysisUseCase) record(r *models.AnalysisReport) {
	retained := 0
	for _, byH := range r.Results {
		retained += len(byH)
	}
	u.metrics.RecordRetained(retained)
	u.metrics.RecordSkipped(len(r.Skipped))
	if len(r.Ranking) > 0 {
		u.metrics.RecordTopScore(r.Symbol, r.Ranking[0].Score)
	}
}

// deliver writes files and stores the report; the event is best effort.
func (u *AnalysisUseCase) deliver(ctx context.Context, r *models.AnalysisReport) error {
	if u.emitter != nil {
		if _, err := u.emitter.Emit(ctx, r); err != nil {
			return fmt.Errorf("emit report files: %w", err)
		}
	}
	if u.reports != nil {
		if err := u.reports.SaveReport(ctx, r); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
	}
	if u.publisher != nil {
		if err := u.publisher.PublishReport(ctx, r); err != nil {
			u.l.Warn("report event not published", logger.String("symbol", r.Symbol), logger.Error(err))
		}
	}
	return nil
}

func runResult(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrAnalysisInProgress):
		return resultLocked
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, predictive.ErrConfiguration):
		return resultInvalid
	case errors.Is(err, predictive.ErrDataShape):
		return resultDataError
	default:
		return resultError
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordRun(string, string)       {}
func (nopMetrics) RecordSkipped(int)              {}
func (nopMetrics) RecordRetained(int)             {}
func (nopMetrics) RecordLatency(string, float64)  {}
func (nopMetrics) RecordTopScore(string, float64) {}
