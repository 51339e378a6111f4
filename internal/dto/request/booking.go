package request

type CreateBookingRequest struct {
	ServiceID string `json:"service_id" validate:"required,uuid"`
	// BarberID may be empty; a free barber of BranchID who performs the service is chosen.
	BarberID      string `json:"barber_id" validate:"omitempty,uuid"`
	BranchID      string `json:"branch_id" validate:"omitempty,uuid"`
	Date          string `json:"date" validate:"required,slot_date"`
	Time          string `json:"time" validate:"required,slot_time"`
	VoucherCode   string `json:"voucher_code" validate:"omitempty,max=50"`
	PaymentType   string `json:"payment_type" validate:"required,oneof=pay_now pay_later"`
	PaymentMethod string `json:"payment_method" validate:"required_if=PaymentType pay_now,max=50"`
	PaymentToken  string `json:"payment_token" validate:"omitempty,max=255"`
	Notes         string `json:"notes" validate:"omitempty,max=500"`
}

type PayBookingRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,max=50"`
	PaymentToken  string `json:"payment_token" validate:"omitempty,max=255"`
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled no_show"`
}
