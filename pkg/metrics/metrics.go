package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barber_booking",
			Name:      "bookings_created_total",
			Help:      "Bookings committed, by payment type.",
		},
		[]string{"payment_type"},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barber_booking",
			Name:      "slot_conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken.",
		},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barber_booking",
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions, by target status.",
		},
		[]string{"to"},
	)

	voucherRedemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barber_booking",
			Name:      "voucher_redemptions_total",
			Help:      "Voucher redemption attempts, by result.",
		},
		[]string{"result"},
	)

	paymentOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barber_booking",
			Name:      "payment_outcomes_total",
			Help:      "Payment attempts, by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	paymentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "barber_booking",
			Name:      "payment_request_duration_seconds",
			Help:      "Latency of payment provider calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

// Register registers collectors with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingsCreated, slotConflicts, transitions, voucherRedemptions, paymentOutcomes, paymentDuration)
	})
}

func IncBookingCreated(paymentType string) {
	bookingsCreated.WithLabelValues(paymentType).Inc()
}

func IncSlotConflict() {
	slotConflicts.Inc()
}

func IncTransition(to string) {
	transitions.WithLabelValues(to).Inc()
}

func IncVoucherRedemption(result string) {
	voucherRedemptions.WithLabelValues(result).Inc()
}

func ObservePayment(provider, outcome string, seconds float64) {
	paymentOutcomes.WithLabelValues(provider, outcome).Inc()
	paymentDuration.WithLabelValues(provider).Observe(seconds)
}
