package entity

import "github.com/google/uuid"

type PaymentOutcome string

const (
	PaymentOutcomeSucceeded PaymentOutcome = "succeeded"
	PaymentOutcomePending   PaymentOutcome = "pending"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
)

// PaymentAttempt records one request/response cycle with a payment provider.
// Booking.PaymentStatus remains the source of truth.
type PaymentAttempt struct {
	Base
	BookingID   uuid.UUID      `db:"booking_id"`
	Amount      float64        `db:"amount"`
	Method      string         `db:"method"`
	Provider    string         `db:"provider"`
	ExternalRef *string        `db:"external_ref"`
	ReferenceID string         `db:"reference_id"`
	Outcome     PaymentOutcome `db:"outcome"`
	RedirectURL *string        `db:"redirect_url"`
	FailureCode *string        `db:"failure_code"`
}
