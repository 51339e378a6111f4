package wire

import (
	"barber-booking/internal/adaptor"
	"barber-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
)

func wireVoucher(r chi.Router, voucherHandler *adaptor.VoucherHandler, auth *middleware.SessionAuth) {
	// POST /api/vouchers/validate - check a code without consuming it
	r.With(auth.AuthSession).Post("/api/vouchers/validate", voucherHandler.Validate)
}
