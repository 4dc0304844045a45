package scan

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for card scans.
type Metrics struct {
	ScansTotal       *prometheus.CounterVec
	ScanDuration     prometheus.Histogram
	PassFailures     *prometheus.CounterVec
	OverallScore     prometheus.Histogram
	NumberValidation *prometheus.CounterVec
}

// NewMetrics registers the scan metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qidscan_scans_total",
			Help: "Total number of card scans by outcome",
		}, []string{"outcome"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "qidscan_scan_duration_seconds",
			Help:    "End-to-end scan latency including OCR",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}),
		PassFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qidscan_ocr_pass_failures_total",
			Help: "OCR passes that returned an error, by mode",
		}, []string{"mode"}),
		OverallScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "qidscan_scan_overall_confidence",
			Help:    "Overall confidence of scans that found a QID",
			Buckets: []float64{0.3, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		}),
		NumberValidation: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qidscan_number_validations_total",
			Help: "Typed-in QID validations by result",
		}, []string{"result"}),
	}
}

// ObserveScan records the outcome and latency of a scan.
func (m *Metrics) ObserveScan(outcome string, start time.Time) {
	m.ScansTotal.WithLabelValues(outcome).Inc()
	m.ScanDuration.Observe(time.Since(start).Seconds())
}
