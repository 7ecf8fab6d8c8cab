package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records metadata for background jobs (embedding sweep, outbox drain).
type JobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of background jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_success",
		Help: "Successful background job executions.",
	}, []string{"job"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_failure",
		Help: "Failed background job executions.",
	}, []string{"job"})
	reg.MustRegister(duration, success, failure)
	return &JobMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration for the named job.
func (j *JobMetrics) ObserveDuration(job string, duration time.Duration) {
	if j == nil || j.duration == nil {
		return
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named job.
func (j *JobMetrics) IncSuccess(job string) {
	if j == nil || j.success == nil {
		return
	}
	j.success.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the named job.
func (j *JobMetrics) IncFailure(job string) {
	if j == nil || j.failure == nil {
		return
	}
	j.failure.WithLabelValues(normalizeLabel(job)).Inc()
}

// FiscalMetrics tracks fiscal sequence supply per NCF series.
type FiscalMetrics struct {
	ncfRemaining *prometheus.GaugeVec
	invoices     *prometheus.CounterVec
}

// NewFiscalMetrics registers the fiscal gauges on the provided registerer.
func NewFiscalMetrics(reg prometheus.Registerer) *FiscalMetrics {
	if reg == nil {
		return &FiscalMetrics{}
	}
	remaining := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ncf_remaining",
		Help: "Remaining NCF numbers per fiscal series.",
	}, []string{"series"})
	invoices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invoices_issued_total",
		Help: "Invoices issued per fiscal series.",
	}, []string{"series"})
	reg.MustRegister(remaining, invoices)
	return &FiscalMetrics{ncfRemaining: remaining, invoices: invoices}
}

// SetNCFRemaining records the remaining supply for a series.
func (f *FiscalMetrics) SetNCFRemaining(series string, remaining int64) {
	if f == nil || f.ncfRemaining == nil {
		return
	}
	f.ncfRemaining.WithLabelValues(normalizeLabel(series)).Set(float64(remaining))
}

// IncInvoiceIssued counts an issued invoice for a series.
func (f *FiscalMetrics) IncInvoiceIssued(series string) {
	if f == nil || f.invoices == nil {
		return
	}
	f.invoices.WithLabelValues(normalizeLabel(series)).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
