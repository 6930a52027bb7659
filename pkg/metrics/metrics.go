package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Record related metrics
	RecordOperations *prometheus.CounterVec
	FileUploads      *prometheus.CounterVec
	FileUploadBytes  *prometheus.HistogramVec

	// Sharing metrics
	ShareLinksIssued   *prometheus.CounterVec
	ShareLinksRedeemed *prometheus.CounterVec
	EmailsSent         *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec

	// Broker metrics
	EventsPublished *prometheus.CounterVec
}

// New creates all application metrics and registers them with reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		RecordOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_operations_total",
			Help:      "Total number of record operations by kind and outcome",
		}, []string{"kind", "operation", "status"}),
		FileUploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_uploads_total",
			Help:      "Total number of record file uploads",
		}, []string{"kind", "status"}),
		FileUploadBytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_upload_bytes",
			Help:      "Size of uploaded record files",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 4, 6),
		}, []string{"kind"}),

		ShareLinksIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_links_issued_total",
			Help:      "Total number of share links issued",
		}, []string{"type"}),
		ShareLinksRedeemed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_links_redeemed_total",
			Help:      "Total number of share link redemptions by result",
		}, []string{"result"}),
		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Total number of share emails sent",
		}, []string{"status"}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of domain events handed to the broker",
		}, []string{"event", "status"}),
	}
}

// ObserveDatabase records the outcome and latency of one database call.
func (m *Metrics) ObserveDatabase(operation string, start time.Time, err error) {
	m.DatabaseOperations.WithLabelValues(operation, Status(err)).Inc()
	m.DatabaseLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Status is the status label for an outcome.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
