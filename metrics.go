package pms7003

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics receives acquisition events from a Worker.
//
// Implementations:
//   - PrometheusMetrics: counters and gauges on a prometheus.Registerer
//   - NopMetrics: discards everything (the default)
type Metrics interface {
	// MeasurementRead is called for every successfully decoded frame.
	MeasurementRead()

	// ReadFailed is called for every failed attempt, labelled by FailureReason.
	ReadFailed(reason string)

	// Buffered reports the number of measurements waiting to be drained.
	Buffered(n int)

	// WorkerFailed is called once when the failure threshold is reached.
	WorkerFailed()
}

// FailureReason maps a read error to a short metric label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrSyncTimeout):
		return "sync_timeout"
	case errors.Is(err, ErrShortRead):
		return "short_read"
	case errors.Is(err, ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, ErrChecksumMismatch):
		return "checksum_mismatch"
	default:
		return "io"
	}
}

// NopMetrics is a no-op Metrics.
type NopMetrics struct{}

func (NopMetrics) MeasurementRead()  {}
func (NopMetrics) ReadFailed(string) {}
func (NopMetrics) Buffered(int)      {}
func (NopMetrics) WorkerFailed()     {}

// PrometheusMetrics exports worker activity as Prometheus metrics.
type PrometheusMetrics struct {
	measurements prometheus.Counter
	failures     *prometheus.CounterVec
	buffered     prometheus.Gauge
	failed       prometheus.Gauge
}

var _ Metrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the collectors and registers them on reg.
// constLabels (for example the device path) are attached to every series.
func NewPrometheusMetrics(reg prometheus.Registerer, constLabels prometheus.Labels) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		measurements: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "pms7003_measurements_total",
			Help:        "Total number of frames decoded successfully.",
			ConstLabels: constLabels,
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pms7003_read_failures_total",
			Help:        "Total number of failed frame reads by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		buffered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "pms7003_buffered_measurements",
			Help:        "Measurements read but not yet drained.",
			ConstLabels: constLabels,
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "pms7003_worker_failed",
			Help:        "1 once the worker gave up after too many read failures.",
			ConstLabels: constLabels,
		}),
	}
	for _, c := range []prometheus.Collector{m.measurements, m.failures, m.buffered, m.failed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) MeasurementRead() { m.measurements.Inc() }

func (m *PrometheusMetrics) ReadFailed(reason string) { m.failures.WithLabelValues(reason).Inc() }

func (m *PrometheusMetrics) Buffered(n int) { m.buffered.Set(float64(n)) }

func (m *PrometheusMetrics) WorkerFailed() { m.failed.Set(1) }
