package adaptor

import (
	"encoding/json"
	"net/http"

	"barber-booking/internal/data/entity"
	"barber-booking/internal/dto/request"
	"barber-booking/internal/usecase"
	"barber-booking/pkg/payment"
	"barber-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

func actorFromRequest(r *http.Request) (usecase.Actor, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		return usecase.Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(r.Context())
	c := entity.Customer{Role: entity.UserRole(role)}
	return usecase.Actor{UserID: userID, Staff: c.IsStaff()}, true
}

// CreateBooking handles POST /api/bookings (protected)
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create booking")
		return
	}

	if booking.Payment != nil && booking.Payment.Outcome == string(payment.OutcomePending) {
		utils.ResponseAccepted(w, "Booking created, complete payment at redirect_url", booking)
		return
	}
	utils.ResponseCreated(w, "success", booking)
}

// GetUserBookings handles GET /api/bookings (protected)
func (h *BookingHandler) GetUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	bookings, err := h.service.ListCustomerBookings(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "get user bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetBooking handles GET /api/bookings/{id} (protected, owner or staff)
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	bookingID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), actor, bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// PayBooking handles POST /api/bookings/{id}/pay (protected)
func (h *BookingHandler) PayBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	bookingID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.PayBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.service.PayBooking(r.Context(), userID, bookingID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "pay booking")
		return
	}

	if result.Payment.Outcome == string(payment.OutcomePending) {
		utils.ResponseAccepted(w, "Complete payment at redirect_url", result)
		return
	}
	utils.ResponseSuccess(w, "success", result)
}

// PayLater handles POST /api/bookings/{id}/pay-later (protected)
func (h *BookingHandler) PayLater(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	bookingID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.service.PayLater(r.Context(), userID, bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "defer payment")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// CancelBooking handles POST /api/bookings/{id}/cancel (protected)
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	bookingID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	booking, err := h.service.AdvanceBooking(r.Context(), actor, bookingID, entity.BookingStatusCancelled)
	if err != nil {
		handleServiceError(w, h.log, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// ==================== STAFF METHODS ====================

// GetBookingByCode handles GET /api/bookings/code/{code} (staff only)
func (h *BookingHandler) GetBookingByCode(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.GetBookingByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, h.log, err, "get booking by code")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// GetBarberBookings handles GET /api/admin/barbers/{barberID}/bookings?date= (staff only)
func (h *BookingHandler) GetBarberBookings(w http.ResponseWriter, r *http.Request) {
	barberID, ok := uuidParam(w, r, "barberID")
	if !ok {
		return
	}

	bookings, err := h.service.GetBookingsForBarberAndDate(r.Context(), barberID, r.URL.Query().Get("date"))
	if err != nil {
		handleServiceError(w, h.log, err, "get barber bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// UpdateStatus handles PATCH /api/admin/bookings/{id}/status (staff only)
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}
	bookingID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req request.UpdateBookingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	booking, err := h.service.AdvanceBooking(r.Context(), actor, bookingID, entity.BookingStatus(req.Status))
	if err != nil {
		handleServiceError(w, h.log, err, "update booking status")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}
