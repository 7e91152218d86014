package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RFQsTotal tracks auction lifecycle transitions (created, filled, expired, cancelled).
	RFQsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_router_rfqs_total",
			Help: "Total number of RFQ lifecycle transitions by outcome.",
		},
		[]string{"outcome"},
	)

	// QuotesTotal tracks inbound quote submissions by result.
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_router_quotes_total",
			Help: "Total number of quote submissions by result (accepted or rejection reason).",
		},
		[]string{"result"},
	)

	// ConnectedMakers is the number of websocket connections currently bound to a maker identity.
	ConnectedMakers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rfq_router_connected_makers",
			Help: "Number of registered maker connections.",
		},
	)

	// WSMessagesDropped counts outbound frames dropped on slow or full maker connections.
	WSMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_router_ws_messages_dropped_total",
			Help: "Outbound websocket frames dropped because a maker send buffer was full.",
		},
		[]string{"type"},
	)

	// TimeToFill measures the time from RFQ creation to a successful fill.
	TimeToFill = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rfq_router_time_to_fill_seconds",
			Help:    "Duration between RFQ creation and fill in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms → ~164s
		},
	)

	// NATSPublishTotal tracks lifecycle event publishes by subject and status.
	NATSPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_router_nats_publish_total",
			Help: "Number of NATS event publishes by subject and status.",
		},
		[]string{"subject", "status"},
	)
)

// IncRFQ increments the RFQ lifecycle counter.
func IncRFQ(outcome string) {
	RFQsTotal.WithLabelValues(outcome).Inc()
}

// IncQuote increments the quote submission counter.
func IncQuote(result string) {
	QuotesTotal.WithLabelValues(result).Inc()
}

// IncDropped increments the dropped-frame counter for a message type.
func IncDropped(msgType string) {
	WSMessagesDropped.WithLabelValues(msgType).Inc()
}

// IncNATSPublish increments the publish counter for a subject.
func IncNATSPublish(subject, status string) {
	NATSPublishTotal.WithLabelValues(subject, status).Inc()
}

// ObserveTimeToFill records the auction duration for a filled RFQ.
func ObserveTimeToFill(createdAt time.Time) {
	TimeToFill.Observe(time.Since(createdAt).Seconds())
}
