package entity

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusBooked    BookingStatus = "booked"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// bookingTransitions is the only source of allowed status changes.
// Nothing transitions back into booked.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusBooked:    {BookingStatusConfirmed, BookingStatusCancelled, BookingStatusNoShow},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow},
	BookingStatusCompleted: {},
	BookingStatusCancelled: {},
	BookingStatusNoShow:    {},
}

// ActiveBookingStatuses occupy a slot.
var ActiveBookingStatuses = []BookingStatus{BookingStatusBooked, BookingStatusConfirmed}

func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// IsActive reports whether a booking in this status holds its (barber, date, time) slot.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusBooked || s == BookingStatusConfirmed
}

func (s BookingStatus) IsTerminal() bool {
	allowed, ok := bookingTransitions[s]
	return !ok || len(allowed) == 0
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range bookingTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s BookingStatus) String() string {
	return string(s)
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// PaymentType is chosen by the customer at booking time.
type PaymentType string

const (
	PaymentTypePayNow   PaymentType = "pay_now"
	PaymentTypePayLater PaymentType = "pay_later"
)

// Booking is one appointment. Date is stored at midnight UTC and Time is "HH:MM".
type Booking struct {
	Base
	BookingCode    string        `db:"booking_code"`
	CustomerID     uuid.UUID     `db:"customer_id"`
	ServiceID      uuid.UUID     `db:"service_id"`
	BarberID       *uuid.UUID    `db:"barber_id"`
	BranchID       uuid.UUID     `db:"branch_id"`
	Date           time.Time     `db:"booking_date"`
	Time           string        `db:"booking_time"`
	Status         BookingStatus `db:"status"`
	PaymentStatus  PaymentStatus `db:"payment_status"`
	PaymentMethod  *string       `db:"payment_method"`
	VoucherID      *uuid.UUID    `db:"voucher_id"`
	Price          float64       `db:"price"`
	DiscountAmount float64       `db:"discount_amount"`
	FinalPrice     float64       `db:"final_price"`
	Notes          *string       `db:"notes"`
	CompletedAt    *time.Time    `db:"completed_at"`
	CancelledAt    *time.Time    `db:"cancelled_at"`
}

// ApplyDiscount sets discount and final price so that
// final = max(0, price - discount) and discount never exceeds price.
func (b *Booking) ApplyDiscount(discount float64) {
	if discount < 0 {
		discount = 0
	}
	if discount > b.Price {
		discount = b.Price
	}
	b.DiscountAmount = roundMoney(discount)
	b.FinalPrice = FinalPrice(b.Price, b.DiscountAmount)
}

// DateString returns the calendar date as YYYY-MM-DD.
func (b *Booking) DateString() string {
	return b.Date.Format(DateLayout)
}

// StartsAt returns the appointment start in loc.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	return ParseSlot(b.DateString(), b.Time, loc)
}

// FinalPrice returns max(0, price - discount) rounded to centavos.
func FinalPrice(price, discount float64) float64 {
	return roundMoney(math.Max(0, price-discount))
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
