// Package metrics registers the Prometheus collectors served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by route template, method and status
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upahan",
		Name:      "http_requests_total",
		Help:      "HTTP requests processed.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration observes request latency by route template
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "upahan",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// BillsGenerated counts created bills by generation kind (flat_rent, dorm)
	BillsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upahan",
		Name:      "bills_generated_total",
		Help:      "Bills created by the billing engine.",
	}, []string{"kind"})

	// BillsSkipped counts tenants skipped because they were already billed for the period
	BillsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upahan",
		Name:      "bills_skipped_total",
		Help:      "Bill generations skipped as already billed.",
	}, []string{"kind"})

	// PaymentsApplied counts payments reconciled against bills by source (landlord, verification)
	PaymentsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upahan",
		Name:      "payments_applied_total",
		Help:      "Payments applied to bill balances.",
	}, []string{"source"})

	// VersionConflicts counts optimistic lock losses on bill balances
	VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "upahan",
		Name:      "bill_version_conflicts_total",
		Help:      "Bill balance updates that lost an optimistic lock race.",
	})

	// BillsMarkedOverdue counts bills flagged by the overdue sweep
	BillsMarkedOverdue = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "upahan",
		Name:      "bills_marked_overdue_total",
		Help:      "Bills moved to overdue by the sweep.",
	})

	// JobsTotal counts background jobs by name and outcome
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "upahan",
		Name:      "jobs_total",
		Help:      "Background jobs run by the worker.",
	}, []string{"job", "outcome"})
)
