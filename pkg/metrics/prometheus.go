package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	gsr             prometheus.Gauge
	signalStrength  *prometheus.GaugeVec
	signalsTotal    *prometheus.CounterVec
	backtestsTotal  *prometheus.CounterVec
	backtestSeconds prometheus.Histogram
	alertsTotal     *prometheus.CounterVec
	pricesStored    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New registers the collectors on the default registry. Call it once per process.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		gsr: f.NewGauge(prometheus.GaugeOpts{
			Name: "gsrswap_gsr_current",
			Help: "Latest observed gold-silver ratio",
		}),
		signalStrength: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gsrswap_signal_strength",
			Help: "Strength of the latest signal by type",
		}, []string{"type"}),
		signalsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gsrswap_signals_total",
			Help: "Signals generated by type",
		}, []string{"type"}),
		backtestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gsrswap_backtests_total",
			Help: "Backtest runs by outcome",
		}, []string{"status"}),
		backtestSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gsrswap_backtest_duration_seconds",
			Help:    "Backtest wall time",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		alertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gsrswap_alerts_triggered_total",
			Help: "Triggered alerts by type",
		}, []string{"type"}),
		pricesStored: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gsrswap_prices_stored_total",
			Help: "Price points persisted by symbol",
		}, []string{"symbol"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gsrswap_errors_total",
			Help: "Total number of errors encountered",
		}, []string{"type"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gsrswap_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordGSR(value float64) {
	r.gsr.Set(value)
}

func (r *Recorder) RecordSignal(signalType string, strength float64) {
	r.signalsTotal.WithLabelValues(signalType).Inc()
	r.signalStrength.WithLabelValues(signalType).Set(strength)
}

func (r *Recorder) RecordBacktest(status string, seconds float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestSeconds.Observe(seconds)
}

func (r *Recorder) RecordAlertTriggered(alertType string) {
	r.alertsTotal.WithLabelValues(alertType).Inc()
}

func (r *Recorder) RecordPricesStored(symbol string, n int) {
	r.pricesStored.WithLabelValues(symbol).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
