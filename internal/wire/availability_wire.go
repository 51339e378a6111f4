package wire

import (
	"barber-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAvailability(r chi.Router, availabilityHandler *adaptor.AvailabilityHandler) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/branches/{branchID}/barbers/{barberID}/slots?date=2026-05-05
	r.Get("/api/branches/{branchID}/barbers/{barberID}/slots", availabilityHandler.GetSlots)
}
