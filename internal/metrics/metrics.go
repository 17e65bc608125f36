// Package metrics exposes Prometheus collectors for the insight pipeline,
// the assistant client, the notification store and the sync server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	insightRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devpilot_insight_runs_total",
			Help: "Insight pipeline runs by trigger and outcome",
		},
		[]string{"trigger", "status"}, // status: success, fallback, error
	)

	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devpilot_ai_requests_total",
			Help: "Requests sent to the generative text endpoint",
		},
		[]string{"operation", "status"},
	)

	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devpilot_ai_request_duration_seconds",
			Help:    "Latency of generative text requests",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"operation"},
	)

	notificationsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devpilot_notifications",
			Help: "Notifications currently held in the store",
		},
	)

	notificationsUnread = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devpilot_notifications_unread",
			Help: "Unread notifications currently held in the store",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devpilot_server_http_requests_total",
			Help: "Sync server HTTP requests by route and status code",
		},
		[]string{"method", "route", "code"},
	)
)

// RecordInsightRun counts one pipeline run
func RecordInsightRun(trigger, status string) {
	insightRunsTotal.WithLabelValues(trigger, status).Inc()
}

// RecordAIRequest counts one remote call and observes its latency
func RecordAIRequest(operation, status string, took time.Duration) {
	aiRequestsTotal.WithLabelValues(operation, status).Inc()
	aiRequestDuration.WithLabelValues(operation).Observe(took.Seconds())
}

// SetNotifications publishes the store size
func SetNotifications(total, unread int) {
	notificationsStored.Set(float64(total))
	notificationsUnread.Set(float64(unread))
}

// RecordHTTPRequest counts one server request
func RecordHTTPRequest(method, route, code string) {
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
}
