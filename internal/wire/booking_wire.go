package wire

import (
	"barber-booking/internal/adaptor"
	"barber-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	auth *middleware.SessionAuth,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthSession)

		r.Post("/api/bookings", bookingHandler.CreateBooking)
		r.Get("/api/bookings", bookingHandler.GetUserBookings)
		r.Get("/api/bookings/{id}", bookingHandler.GetBooking)
		r.Post("/api/bookings/{id}/pay", bookingHandler.PayBooking)
		r.Post("/api/bookings/{id}/pay-later", bookingHandler.PayLater)
		r.Post("/api/bookings/{id}/cancel", bookingHandler.CancelBooking)

		// Front desk lookup
		r.With(middleware.Staff(log)).Get("/api/bookings/code/{code}", bookingHandler.GetBookingByCode)
	})

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.AuthSession)
		r.Use(middleware.Staff(log))

		// GET /api/admin/barbers/{barberID}/bookings?date=2026-05-05
		r.Get("/barbers/{barberID}/bookings", bookingHandler.GetBarberBookings)

		// PATCH /api/admin/bookings/{id}/status
		r.Patch("/bookings/{id}/status", bookingHandler.UpdateStatus)
	})
}
