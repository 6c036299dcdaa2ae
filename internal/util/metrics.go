package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cancellations_total",
		Help: "Total number of processed cancellations",
	}, []string{"kind"})

	CancellationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cancellations_failed_total",
		Help: "Total number of failed cancellations",
	}, []string{"reason"})

	GatewayCancelLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_cancel_latency_seconds",
		Help:    "Latency of payment gateway cancel calls",
		Buckets: prometheus.DefBuckets,
	})

	GatewayCancelFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_cancel_failed_total",
		Help: "Total number of gateway cancel calls refused or errored",
	})

	OrphanGatewayCancelsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orphan_gateway_cancels_total",
		Help: "Gateway cancels whose order could not be located locally",
	})

	PersistenceFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_persistence_failures_total",
		Help: "Local store failures after a successful gateway cancel",
	})

	PointsRefundedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "points_refunded_total",
		Help: "Total loyalty points credited back by cancellations",
	})

	OrdersSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_settled_total",
		Help: "Total number of orders marked settled",
	})

	SettlementBatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_batch_latency_seconds",
		Help:    "Latency of settlement batch transactions",
		Buckets: prometheus.DefBuckets,
	})

	NotificationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cancellation_notifications_failed_total",
		Help: "Total number of failed cancellation notifications",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
