package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Donations
	DonationsInitiated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "donations_initiated_total",
			Help: "Donations created in pending state",
		},
	)
	DonationsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donations_completed_total",
			Help: "First terminal transitions of donations",
		},
		[]string{"status"}, // success|failed
	)
	DonatedAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "donations_amount_total",
			Help: "Sum of successful donation amounts in the smallest currency unit",
		},
	)
	CallbacksRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_rejected_total",
			Help: "Payment callbacks refused before any state change",
		},
		[]string{"reason"}, // hash|mismatch|unknown|disabled
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
	WorkerTasksRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_rejected_total",
			Help: "Tasks refused by the worker pool",
		},
		[]string{"reason"}, // full|stopped
	)
	ReceiptsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "donation_receipts_sent_total",
			Help: "Donation receipts dispatched",
		},
	)

	initOnce sync.Once
)

// Handler serves /metrics.
var Handler = promhttp.Handler

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			DonationsInitiated,
			DonationsCompleted,
			DonatedAmount,
			CallbacksRejected,
			WorkerQueueDepth,
			WorkerTasksRejected,
			ReceiptsSent,
		)
	})
}
