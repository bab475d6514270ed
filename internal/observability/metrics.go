package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	linkFramesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "devlink",
			Subsystem: "link",
			Name:      "frames_sent_total",
			Help:      "Frames written to the transport.",
		},
	)
	linkFramesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "devlink",
			Subsystem: "link",
			Name:      "frames_received_total",
			Help:      "Frames parsed from the transport.",
		},
	)
	linkResyncs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "devlink",
			Subsystem: "link",
			Name:      "resyncs_total",
			Help:      "Frames recovered through the carry-buffer window scan.",
		},
	)
	linkReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "devlink",
			Subsystem: "link",
			Name:      "reconnects_total",
			Help:      "Best-effort transport close/reopen cycles.",
		},
	)
	linkCarryResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "devlink",
			Subsystem: "link",
			Name:      "carry_resets_total",
			Help:      "Carry-over buffer resets due to overflow.",
		},
	)
	busPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devlink",
			Subsystem: "bus",
			Name:      "published_total",
			Help:      "Values pushed per channel.",
		},
		[]string{"channel"},
	)
	busDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devlink",
			Subsystem: "bus",
			Name:      "dropped_total",
			Help:      "Oldest-value drops from bounded subscriber queues.",
		},
		[]string{"channel"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devlink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin API requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "devlink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			linkFramesSent, linkFramesReceived, linkResyncs, linkReconnects, linkCarryResets,
			busPublished, busDropped,
			httpRequests, httpDuration,
		)
	})
}

func RecordFrameSent() {
	RegisterMetrics()
	linkFramesSent.Inc()
}

func RecordFrameReceived() {
	RegisterMetrics()
	linkFramesReceived.Inc()
}

func RecordResync() {
	RegisterMetrics()
	linkResyncs.Inc()
}

func RecordLinkReconnect() {
	RegisterMetrics()
	linkReconnects.Inc()
}

func RecordCarryReset() {
	RegisterMetrics()
	linkCarryResets.Inc()
}

func RecordBusPublish(channel string) {
	RegisterMetrics()
	busPublished.WithLabelValues(channel).Inc()
}

func RecordBusDrop(channel string) {
	RegisterMetrics()
	busDropped.WithLabelValues(channel).Inc()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
