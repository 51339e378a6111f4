package wire

import (
	"barber-booking/internal/adaptor"
	"barber-booking/pkg/middleware"
	"barber-booking/pkg/payment"
	"barber-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler, config *utils.Config, gateway payment.Gateway, log *zap.Logger) {
	// Provider callbacks authenticate with a shared token or a gateway-checked signature instead of a session
	r.With(middleware.WebhookToken(config.Payment.WebhookTokenHash, payment.VerifiesWebhooks(gateway), log)).
		Post("/webhooks/payments", paymentHandler.Webhook)
}
