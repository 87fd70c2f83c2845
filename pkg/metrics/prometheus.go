package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runs     *prometheus.CounterVec
	skipped  prometheus.Counter
	retained prometheus.Counter
	latency  *prometheus.HistogramVec
	topScore *prometheus.GaugeVec
}

// New creates a recorder registered with reg, or the default registerer when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finscope_analysis_runs_total",
				Help: "Analysis runs by symbol and result",
			},
			[]string{"symbol", "result"},
		),
		skipped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "finscope_analysis_skipped_pairs_total",
				Help: "Indicator/horizon pairs skipped for computational reasons",
			},
		),
		retained: f.NewCounter(
			prometheus.CounterOpts{
				Name: "finscope_analysis_retained_pairs_total",
				Help: "Indicator/horizon pairs that passed both thresholds",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finscope_analysis_stage_duration_seconds",
				Help:    "Duration of analysis stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		topScore: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finscope_analysis_top_score",
				Help: "Best predictive score of the latest run per symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordRun counts a finished run. result is "ok" or an error kind.
func (r *Recorder) RecordRun(symbol, result string) {
	r.runs.WithLabelValues(symbol, result).Inc()
}

func (r *Recorder) RecordSkipped(n int) { r.skipped.Add(float64(n)) }

func (r *Recorder) RecordRetained(n int) { r.retained.Add(float64(n)) }

// RecordLatency records stage latency in seconds.
func (r *Recorder) RecordLatency(stage string, seconds float64) {
	r.latency.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordTopScore(symbol string, score float64) {
	r.topScore.WithLabelValues(symbol).Set(score)
}
