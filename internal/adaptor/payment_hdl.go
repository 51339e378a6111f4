package adaptor

import (
	"io"
	"net/http"

	"barber-booking/internal/usecase"
	"barber-booking/pkg/utils"

	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.BookingService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// Webhook handles POST /webhooks/payments (provider callback)
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.HandlePaymentWebhook(r.Context(), r.Header, body)
	if err != nil {
		handleServiceError(w, h.log, err, "reconcile payment")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}
