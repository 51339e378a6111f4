package adaptor

import (
	"barber-booking/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Availability *AvailabilityHandler
	Booking      *BookingHandler
	Voucher      *VoucherHandler
	Payment      *PaymentHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Availability: NewAvailabilityHandler(service.Availability, log),
		Booking:      NewBookingHandler(service.Booking, log),
		Voucher:      NewVoucherHandler(service.Booking, log),
		Payment:      NewPaymentHandler(service.Booking, log),
	}
}
