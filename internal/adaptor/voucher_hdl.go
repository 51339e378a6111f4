package adaptor

import (
	"encoding/json"
	"net/http"

	"barber-booking/internal/dto/request"
	"barber-booking/internal/usecase"
	"barber-booking/pkg/utils"

	"go.uber.org/zap"
)

type VoucherHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewVoucherHandler(service usecase.BookingService, log *zap.Logger) *VoucherHandler {
	return &VoucherHandler{
		service: service,
		log:     log.With(zap.String("handler", "voucher")),
	}
}

// Validate handles POST /api/vouchers/validate (protected). It never consumes the voucher.
func (h *VoucherHandler) Validate(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.ValidateVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	voucher, err := h.service.ValidateVoucher(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "validate voucher")
		return
	}

	utils.ResponseSuccess(w, "success", voucher)
}
