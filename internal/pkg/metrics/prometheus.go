package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus mirrors of the internal collector, exported on /metrics.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialpulse",
		Subsystem: "webhook",
		Name:      "requests_total",
		Help:      "Inbound webhook requests by platform.",
	}, []string{"platform"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialpulse",
		Subsystem: "webhook",
		Name:      "rejections_total",
		Help:      "Requests rejected by the transport guard.",
	}, []string{"platform", "reason"})

	violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialpulse",
		Subsystem: "security",
		Name:      "violations_total",
		Help:      "Security violations by type.",
	}, []string{"platform", "type"})

	processingSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "socialpulse",
		Subsystem: "webhook",
		Name:      "processing_seconds",
		Help:      "Event processing duration.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"platform"})

	responseSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "socialpulse",
		Subsystem: "webhook",
		Name:      "response_seconds",
		Help:      "Ingestion endpoint response time.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"platform"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "socialpulse",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Pending jobs in the processing queue.",
	})
)

func mirrorToPrometheus(metricType string, dims map[string]string, value float64) {
	platform := dims["platform"]
	if platform == "" {
		platform = "unknown"
	}
	switch metricType {
	case TypeRequest:
		requestsTotal.WithLabelValues(platform).Inc()
	case TypeRejected:
		rejectionsTotal.WithLabelValues(platform, dims["reason"]).Inc()
	case TypeViolation:
		violationsTotal.WithLabelValues(platform, dims["type"]).Inc()
	case TypeProcessingMS:
		processingSeconds.WithLabelValues(platform).Observe(value / 1000)
	case TypeResponseTimeMS:
		responseSeconds.WithLabelValues(platform).Observe(value / 1000)
	case TypeQueueDepth:
		queueDepth.Set(value)
	}
}
