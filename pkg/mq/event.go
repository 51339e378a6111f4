package mq

import "time"

// BookingEvent is the payload of every booking.* event.
type BookingEvent struct {
	BookingID     string    `json:"booking_id"`
	BookingCode   string    `json:"booking_code"`
	CustomerID    string    `json:"customer_id"`
	BarberID      string    `json:"barber_id,omitempty"`
	BranchID      string    `json:"branch_id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	FinalPrice    float64   `json:"final_price"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type PaymentFailedEvent struct {
	BookingID   string    `json:"booking_id"`
	Provider    string    `json:"provider"`
	ReferenceID string    `json:"reference_id"`
	FailureCode string    `json:"failure_code,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type VoucherRedeemedEvent struct {
	VoucherID  string    `json:"voucher_id"`
	Code       string    `json:"code"`
	BookingID  string    `json:"booking_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
