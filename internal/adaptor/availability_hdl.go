package adaptor

import (
	"net/http"

	"barber-booking/internal/dto/response"
	"barber-booking/internal/usecase"
	"barber-booking/pkg/utils"

	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	service usecase.AvailabilityService
	log     *zap.Logger
}

func NewAvailabilityHandler(service usecase.AvailabilityService, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log.With(zap.String("handler", "availability")),
	}
}

// GetSlots handles GET /api/branches/{branchID}/barbers/{barberID}/slots?date=YYYY-MM-DD (public)
func (h *AvailabilityHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	branchID, ok := uuidParam(w, r, "branchID")
	if !ok {
		return
	}
	barberID, ok := uuidParam(w, r, "barberID")
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		utils.ResponseBadRequest(w, "Validation failed", map[string]string{"date": "This field is required"})
		return
	}

	seq, err := h.service.GetAvailableSlots(r.Context(), branchID, barberID, date)
	if err != nil {
		handleServiceError(w, h.log, err, "get available slots")
		return
	}

	resp := response.AvailabilityResponse{
		BranchID: branchID.String(),
		BarberID: barberID.String(),
		Date:     date,
		Slots:    []response.SlotResponse{},
	}
	for slot := range seq.All() {
		resp.Slots = append(resp.Slots, response.SlotResponse{
			Time:      slot.Time,
			Available: slot.Available,
			Reason:    slot.Reason,
		})
	}

	utils.ResponseSuccess(w, "success", resp)
}
