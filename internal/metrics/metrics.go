package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyfriend_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyfriend_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyfriend_bookings_total",
			Help: "Total number of session booking attempts",
		},
		[]string{"result"},
	)

	BookingDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyfriend_booking_decisions_total",
			Help: "Total number of booking decisions",
		},
		[]string{"decision"},
	)

	SessionCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyfriend_session_cancellations_total",
			Help: "Total number of session cancellations",
		},
	)

	LedgerTransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyfriend_ledger_transactions_total",
			Help: "Total number of committed ledger transactions",
		},
		[]string{"kind", "purpose"},
	)

	InsufficientFundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyfriend_ledger_insufficient_funds_total",
			Help: "Total number of debits rejected for insufficient funds",
		},
	)

	PaymentsInitiatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyfriend_payments_initiated_total",
			Help: "Total number of top-up payments initiated",
		},
	)

	PaymentVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyfriend_payment_verifications_total",
			Help: "Total number of top-up payment verifications",
		},
		[]string{"status"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyfriend_notifications_total",
			Help: "Total number of notifications",
		},
		[]string{"status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyfriend_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(result string) {
	BookingsTotal.WithLabelValues(result).Inc()
}

func RecordBookingDecision(decision string) {
	BookingDecisionsTotal.WithLabelValues(decision).Inc()
}

func RecordSessionCancellation() {
	SessionCancellationsTotal.Inc()
}

func RecordLedgerTransaction(kind, purpose string) {
	LedgerTransactionsTotal.WithLabelValues(kind, purpose).Inc()
}

func RecordInsufficientFunds() {
	InsufficientFundsTotal.Inc()
}

func RecordPaymentInitiated() {
	PaymentsInitiatedTotal.Inc()
}

func RecordPaymentVerification(status string) {
	PaymentVerificationsTotal.WithLabelValues(status).Inc()
}

func RecordNotification(status string) {
	NotificationsTotal.WithLabelValues(status).Inc()
}
