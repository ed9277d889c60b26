package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "theraslot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "theraslot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SlotsUpsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "theraslot_slots_upserted_total",
			Help: "Total number of availability slot upserts",
		},
		[]string{"result"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "theraslot_bookings_total",
			Help: "Total number of booking attempts",
		},
		[]string{"outcome"},
	)

	BookingCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "theraslot_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
	)

	ReschedulesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "theraslot_reschedules_total",
			Help: "Total number of reschedule attempts",
		},
		[]string{"outcome"},
	)

	SlotClaimConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "theraslot_slot_claim_conflicts_total",
			Help: "Total number of slot claims lost to a concurrent booking",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "theraslot_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "theraslot_email_queue_length",
			Help: "Current length of email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordSlotUpsert(result string) {
	SlotsUpsertedTotal.WithLabelValues(result).Inc()
}

func RecordBooking(outcome string) {
	BookingsTotal.WithLabelValues(outcome).Inc()
}

func RecordBookingCancellation() {
	BookingCancellationsTotal.Inc()
}

func RecordReschedule(outcome string) {
	ReschedulesTotal.WithLabelValues(outcome).Inc()
}

func RecordSlotClaimConflict() {
	SlotClaimConflictsTotal.Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}
