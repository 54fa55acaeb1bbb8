// Package metrics exposes Prometheus instrumentation for the HTTP surface,
// the ledger and the background auditor.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forgo/goodjobs/internal/model"
)

const namespace = "goodjobs"

var (
	// Registry holds the application's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	goodJobsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "goodjobs_created_total",
			Help:      "Total number of GoodJobs minted.",
		},
	)

	goodJobsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "goodjobs_deleted_total",
			Help:      "Total number of GoodJobs deleted.",
		},
	)

	transfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transfers_total",
			Help:      "Total number of transfer attempts by outcome.",
		},
		[]string{"outcome", "reason"},
	)

	transferDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transfer_duration_seconds",
			Help:      "Duration of committed transfer transactions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	auditRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "runs_total",
			Help:      "Total number of ledger audits by result.",
		},
		[]string{"result"},
	)

	auditViolations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "violations",
			Help:      "Ledger invariant violations found by the last audit.",
		},
		[]string{"kind"},
	)

	auditGoodJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "goodjobs",
			Help:      "GoodJobs seen by the last audit.",
		},
	)

	auditLastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed audit.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		goodJobsCreated,
		goodJobsDeleted,
		transfers,
		transferDuration,
		auditRuns,
		auditViolations,
		auditGoodJobs,
		auditLastRun,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler records request counts and latency labelled by the mux
// route template, so /api/goodjobs/7 and /api/goodjobs/8 share a series.
// It must be installed with Router.Use for the route to be known.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeTemplate(r)
		if route == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Ledger records ledger events. The zero value is ready to use.
type Ledger struct{}

// GoodJobCreated counts a minted GoodJob
func (Ledger) GoodJobCreated() { goodJobsCreated.Inc() }

// GoodJobDeleted counts a deleted GoodJob
func (Ledger) GoodJobDeleted() { goodJobsDeleted.Inc() }

// TransferCompleted counts a committed transfer
func (Ledger) TransferCompleted(d time.Duration) {
	transfers.WithLabelValues("completed", "").Inc()
	transferDuration.Observe(d.Seconds())
}

// TransferRejected counts a refused transfer
func (Ledger) TransferRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	transfers.WithLabelValues("rejected", reason).Inc()
}

// RecordAudit publishes the findings of a ledger audit
func RecordAudit(a *model.OwnershipAudit) {
	result := "clean"
	if !a.Clean() {
		result = "violations"
	}
	auditRuns.WithLabelValues(result).Inc()
	auditViolations.WithLabelValues("admin_owned").Set(float64(len(a.AdminOwned)))
	auditViolations.WithLabelValues("owner_mismatch").Set(float64(len(a.OwnerMismatches)))
	auditGoodJobs.Set(float64(a.GoodJobs))
	auditLastRun.Set(float64(a.CheckedAt.Unix()))
}

// RecordAuditFailure counts an audit that could not complete
func RecordAuditFailure() {
	auditRuns.WithLabelValues("error").Inc()
}

// Audit adapts the audit metrics to the ledger auditor's reporter
type Audit struct{}

func (Audit) RecordAudit(a *model.OwnershipAudit) { RecordAudit(a) }

func (Audit) RecordAuditFailure() { RecordAuditFailure() }
