package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequirementComputationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "requirement_computations_total",
		Help: "Total number of requirement engine computations",
	}, []string{"operation"})

	RequirementComputationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "requirement_computation_latency_seconds",
		Help:    "Latency of snapshot load plus requirement computation",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	ShortagesFoundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortages_found_total",
		Help: "Total number of shortage rows returned",
	}, []string{"operation"})

	StockMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_mutations_total",
		Help: "Total number of committed stock mutations",
	}, []string{"type"})

	StockMutationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_mutations_rejected_total",
		Help: "Total number of rejected stock mutations",
	}, []string{"kind"})

	ReceiptsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipts_created_total",
		Help: "Total number of scheduled receipts created",
	})

	ReceiptTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipt_transitions_total",
		Help: "Total number of scheduled receipt status transitions",
	}, []string{"to"})

	PlanTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plan_transitions_total",
		Help: "Total number of production plan status transitions",
	}, []string{"to"})

	AlertsRaised = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alerts_current",
		Help: "Alerts found by the latest alert computation",
	}, []string{"category", "tier"})

	EventsPublishFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_publish_failed_total",
		Help: "Total number of domain events that could not be published",
	}, []string{"type"})

	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idempotent_replays_total",
		Help: "Total number of mutating requests answered from the idempotency cache",
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
