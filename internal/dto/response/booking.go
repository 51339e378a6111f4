package response

import (
	"time"

	"barber-booking/internal/data/entity"
)

type BookingResponse struct {
	ID             string               `json:"id"`
	BookingCode    string               `json:"booking_code"`
	CustomerID     string               `json:"customer_id"`
	ServiceID      string               `json:"service_id"`
	BarberID       *string              `json:"barber_id,omitempty"`
	BranchID       string               `json:"branch_id"`
	Date           string               `json:"date"`
	Time           string               `json:"time"`
	Status         entity.BookingStatus `json:"status"`
	PaymentStatus  entity.PaymentStatus `json:"payment_status"`
	PaymentMethod  *string              `json:"payment_method,omitempty"`
	VoucherID      *string              `json:"voucher_id,omitempty"`
	Price          float64              `json:"price"`
	DiscountAmount float64              `json:"discount_amount"`
	FinalPrice     float64              `json:"final_price"`
	Notes          *string              `json:"notes,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	CancelledAt    *time.Time           `json:"cancelled_at,omitempty"`
	LastPayment    *PaymentInfo         `json:"last_payment,omitempty"`
}

// PaymentInfo describes the provider outcome. RedirectURL is set when the customer must finish paying elsewhere.
type PaymentInfo struct {
	Outcome     string `json:"outcome"`
	RedirectURL string `json:"redirect_url,omitempty"`
	ExternalRef string `json:"external_ref,omitempty"`
}

// VoucherError explains why a supplied voucher was not applied. The booking itself stands.
type VoucherError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type CreateBookingResponse struct {
	Booking      BookingResponse `json:"booking"`
	Payment      *PaymentInfo    `json:"payment,omitempty"`
	VoucherError *VoucherError   `json:"voucher_error,omitempty"`
}

type PaymentResponse struct {
	Booking BookingResponse `json:"booking"`
	Payment PaymentInfo     `json:"payment"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	resp := BookingResponse{
		ID:             b.ID.String(),
		BookingCode:    b.BookingCode,
		CustomerID:     b.CustomerID.String(),
		ServiceID:      b.ServiceID.String(),
		BranchID:       b.BranchID.String(),
		Date:           b.DateString(),
		Time:           b.Time,
		Status:         b.Status,
		PaymentStatus:  b.PaymentStatus,
		PaymentMethod:  b.PaymentMethod,
		Price:          b.Price,
		DiscountAmount: b.DiscountAmount,
		FinalPrice:     b.FinalPrice,
		Notes:          b.Notes,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		CompletedAt:    b.CompletedAt,
		CancelledAt:    b.CancelledAt,
	}
	if b.BarberID != nil {
		id := b.BarberID.String()
		resp.BarberID = &id
	}
	if b.VoucherID != nil {
		id := b.VoucherID.String()
		resp.VoucherID = &id
	}
	return resp
}

func PaymentAttemptToInfo(p *entity.PaymentAttempt) *PaymentInfo {
	info := &PaymentInfo{Outcome: string(p.Outcome)}
	if p.RedirectURL != nil {
		info.RedirectURL = *p.RedirectURL
	}
	if p.ExternalRef != nil {
		info.ExternalRef = *p.ExternalRef
	}
	return info
}

func BookingsToResponse(bookings []*entity.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookingToResponse(b))
	}
	return out
}
