package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	passDuration   *prometheus.HistogramVec
	passSymbols    *prometheus.GaugeVec
	symbolsSkipped *prometheus.CounterVec
	updateOutcomes *prometheus.CounterVec
	topRatio       *prometheus.GaugeVec
	snapshotsSent  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		passDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "volrank_pass_duration_seconds",
				Help:    "Duration of ranking passes in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pass"},
		),
		passSymbols: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "volrank_pass_symbols",
				Help: "Number of symbols handled by the last ranking pass",
			},
			[]string{"pass", "result"},
		),
		symbolsSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volrank_symbols_skipped_total",
				Help: "Total number of symbols skipped during ranking passes",
			},
			[]string{"symbol", "reason"},
		),
		updateOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volrank_window_updates_total",
				Help: "Total number of window update attempts by outcome",
			},
			[]string{"outcome"},
		),
		topRatio: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "volrank_top_ratio",
				Help: "Buying volume ratio of the top ranked symbol",
			},
			[]string{"symbol"},
		),
		snapshotsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volrank_snapshots_sent_total",
				Help: "Total number of rank snapshots sent to a backend",
			},
			[]string{"backend"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volrank_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordPass records the outcome of a ranking pass.
func (r *Recorder) RecordPass(pass string, symbols, skipped int, seconds float64) {
	r.passDuration.WithLabelValues(pass).Observe(seconds)
	r.passSymbols.WithLabelValues(pass, "ranked").Set(float64(symbols))
	r.passSymbols.WithLabelValues(pass, "skipped").Set(float64(skipped))
}

// RecordSymbolSkipped records a symbol dropped from a ranking pass.
func (r *Recorder) RecordSymbolSkipped(symbol, reason string) {
	r.symbolsSkipped.WithLabelValues(symbol, reason).Inc()
}

// RecordUpdateOutcome records the result of a window update attempt.
func (r *Recorder) RecordUpdateOutcome(outcome string) {
	r.updateOutcomes.WithLabelValues(outcome).Inc()
}

// RecordTopRatio records the ratio of the top ranked symbol.
func (r *Recorder) RecordTopRatio(symbol string, ratio float64) {
	r.topRatio.WithLabelValues(symbol).Set(ratio)
}

// RecordSnapshotSent records a snapshot delivered to a backend.
func (r *Recorder) RecordSnapshotSent(backend string) {
	r.snapshotsSent.WithLabelValues(backend).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
