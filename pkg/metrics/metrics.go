package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ImportMetrics records per-batch persistence outcomes.
type ImportMetrics struct {
	records  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewImportMetrics registers the import metrics on the provided registerer.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		return &ImportMetrics{}
	}
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_records_total",
		Help: "Processed import records by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "import_batch_duration_seconds",
		Help:    "Duration of import batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"supplier"})
	reg.MustRegister(records, duration)
	return &ImportMetrics{records: records, duration: duration}
}

// IncOutcome increments the record counter for the given outcome
// (created/updated/matched/errored).
func (m *ImportMetrics) IncOutcome(outcome string, n int) {
	if m == nil || m.records == nil || n <= 0 {
		return
	}
	m.records.WithLabelValues(outcome).Add(float64(n))
}

// ObserveBatch records the duration of one batch for a supplier.
func (m *ImportMetrics) ObserveBatch(supplier string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	if supplier == "" {
		supplier = "unknown"
	}
	m.duration.WithLabelValues(supplier).Observe(duration.Seconds())
}

// CronJobMetrics records metadata for scheduled jobs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of cron jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success",
		Help: "Successful cron job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure",
		Help: "Failed cron job executions.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure)
	return &CronJobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named job.
func (c *CronJobMetrics) ObserveDuration(job string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

func normalizeLabel(job string) string {
	if job == "" {
		return "unknown"
	}
	return job
}
