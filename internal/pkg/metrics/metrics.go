package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the reconciliation collectors. A nil *Registry is valid and
// records nothing, so engines can be built without metrics in tests.
type Registry struct {
	reg *prometheus.Registry

	ReportsGenerated  *prometheus.CounterVec
	ReportLatencySec  prometheus.Histogram
	BatchLatencySec   prometheus.Histogram
	ExcludedPunches   *prometheus.CounterVec
	MismatchedPairs   prometheus.Counter
	PunchesNormalized prometheus.Counter
	RepositoryRetries *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	reports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_reports_generated_total",
		Help: "Employee reports generated, by outcome.",
	}, []string{"status"})
	reportLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recon_report_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	batchLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recon_batch_latency_seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
	excluded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_excluded_punches_total",
		Help: "Punches left out of totals, by data gap reason.",
	}, []string{"reason"})
	mismatched := prometheus.NewCounter(prometheus.CounterOpts{Name: "recon_mismatched_kind_pairs_total"})
	normalized := prometheus.NewCounter(prometheus.CounterOpts{Name: "recon_punches_normalized_total"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_repository_retries_total",
	}, []string{"op"})

	r.MustRegister(reports, reportLatency, batchLatency, excluded, mismatched, normalized, retries)
	return &Registry{
		reg:               r,
		ReportsGenerated:  reports,
		ReportLatencySec:  reportLatency,
		BatchLatencySec:   batchLatency,
		ExcludedPunches:   excluded,
		MismatchedPairs:   mismatched,
		PunchesNormalized: normalized,
		RepositoryRetries: retries,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

func (r *Registry) ObserveReport(status string, started time.Time) {
	if r == nil {
		return
	}
	r.ReportsGenerated.WithLabelValues(status).Inc()
	r.ReportLatencySec.Observe(time.Since(started).Seconds())
}

func (r *Registry) ObserveBatch(started time.Time) {
	if r == nil {
		return
	}
	r.BatchLatencySec.Observe(time.Since(started).Seconds())
}

func (r *Registry) AddExcluded(reason string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.ExcludedPunches.WithLabelValues(reason).Add(float64(n))
}

func (r *Registry) AddMismatched(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.MismatchedPairs.Add(float64(n))
}

func (r *Registry) AddNormalized(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.PunchesNormalized.Add(float64(n))
}

func (r *Registry) IncRetry(op string) {
	if r == nil {
		return
	}
	r.RepositoryRetries.WithLabelValues(op).Inc()
}
