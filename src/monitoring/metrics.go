package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	salesReserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_sales_reserved_total",
			Help: "Pending sale rows created per ticket",
		},
		[]string{"ticket_id"},
	)

	reservationsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_reservations_rejected_total",
			Help: "Reservations refused by the inventory check",
		},
		[]string{"reason"},
	)

	reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_reconciliations_total",
			Help: "Payment confirmations by outcome",
		},
		[]string{"result"},
	)

	fulfillmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ticket_fulfillment_duration_seconds",
			Help:    "Time to render, upload and email one batch of tickets",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_redemptions_total",
			Help: "Redemption gate transitions by action and result",
		},
		[]string{"action", "result"},
	)
)

func RecordSalesReserved(ticketID string, count int) {
	salesReserved.WithLabelValues(ticketID).Add(float64(count))
}

func RecordReservationRejected(reason string) {
	reservationsRejected.WithLabelValues(reason).Inc()
}

func RecordReconciliation(result string) {
	reconciliations.WithLabelValues(result).Inc()
}

func RecordFulfillment(started time.Time) {
	fulfillmentDuration.Observe(time.Since(started).Seconds())
}

func RecordRedemption(action, result string) {
	redemptions.WithLabelValues(action, result).Inc()
}
