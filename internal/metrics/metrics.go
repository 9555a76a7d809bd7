package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "villa_http_requests_total",
			Help: "Total HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "villa_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// BookingConflicts counts reservations rejected because the dates were taken
	BookingConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "villa_booking_conflicts_total",
			Help: "Reservations rejected with a date conflict",
		},
		[]string{"operation"},
	)

	// LedgerSyncFailures counts mirror writes that failed and were queued for reconciliation
	LedgerSyncFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "villa_ledger_sync_failures_total",
			Help: "Ledger mirror writes that failed",
		},
		[]string{"kind", "operation"},
	)

	LedgerSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "villa_ledger_sync_total",
			Help: "Ledger mirror writes attempted",
		},
		[]string{"kind", "operation"},
	)

	SyncOutboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "villa_sync_outbox_pending",
			Help: "Failed mirror writes awaiting reconciliation, as of the last report",
		},
	)
)
