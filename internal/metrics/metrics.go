// Package metrics exposes the review service's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	editsCommitted   *prometheus.CounterVec
	editFailures     *prometheus.CounterVec
	editDuration     *prometheus.HistogramVec
	auditEntries     *prometheus.CounterVec
	jobTriggers      *prometheus.CounterVec
	snapshotRefresh  *prometheus.CounterVec
	decodes          *prometheus.CounterVec
	websocketClients prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		editsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "review_edits_committed_total",
			Help: "Edit transactions that reached Done, by dataset",
		}, []string{"dataset"}),
		editFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "review_edit_failures_total",
			Help: "Edit transactions that failed, by dataset and stage",
		}, []string{"dataset", "stage"}),
		editDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "review_edit_submit_duration_seconds",
			Help:    "Time from submit to Done or Failed",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"dataset"}),
		auditEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "review_audit_entries_total",
			Help: "Audit log entries appended, by dataset",
		}, []string{"dataset"}),
		jobTriggers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "review_job_triggers_total",
			Help: "Downstream job submissions by result",
		}, []string{"result"}),
		snapshotRefresh: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "review_latest_snapshot_total",
			Help: "Latest-pair snapshot lookups by result (hit, refresh, error)",
		}, []string{"result"}),
		decodes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "review_decodes_total",
			Help: "Source files decoded, by dataset and winning encoding",
		}, []string{"dataset", "encoding"}),
		websocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "review_change_feed_clients",
			Help: "Open change feed websocket connections",
		}),
	}
}

// Registry is exposed for tests and for registering extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the text exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) EditCommitted(dataset string, entries int, took time.Duration) {
	if r == nil {
		return
	}
	r.editsCommitted.WithLabelValues(dataset).Inc()
	r.auditEntries.WithLabelValues(dataset).Add(float64(entries))
	r.editDuration.WithLabelValues(dataset).Observe(took.Seconds())
}

func (r *Recorder) EditFailed(dataset, stage string, took time.Duration) {
	if r == nil {
		return
	}
	r.editFailures.WithLabelValues(dataset, stage).Inc()
	r.editDuration.WithLabelValues(dataset).Observe(took.Seconds())
}

func (r *Recorder) JobTriggered(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.jobTriggers.WithLabelValues(result).Inc()
}

// Snapshot records a latest-pair lookup; result is hit, refresh or error.
func (r *Recorder) Snapshot(result string) {
	if r == nil {
		return
	}
	r.snapshotRefresh.WithLabelValues(result).Inc()
}

func (r *Recorder) Decoded(dataset, encoding string) {
	if r == nil {
		return
	}
	r.decodes.WithLabelValues(dataset, encoding).Inc()
}

func (r *Recorder) ClientConnected() {
	if r == nil {
		return
	}
	r.websocketClients.Inc()
}

func (r *Recorder) ClientDisconnected() {
	if r == nil {
		return
	}
	r.websocketClients.Dec()
}
