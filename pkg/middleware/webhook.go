package middleware

import (
	"net/http"

	"barber-booking/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const callbackTokenHeader = "X-Callback-Token"

// WebhookToken checks the provider callback token against a bcrypt hash.
// Signed providers verify in their gateway and pass through. Without a hash
// every other callback is refused.
func WebhookToken(hash string, signed bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if signed {
			return next
		}
		if hash == "" {
			logger.Warn("No callback token configured, payment callbacks will be refused")
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				logger.Warn("Rejected payment callback",
					zap.String("ip", r.RemoteAddr),
					zap.String("reason", "no callback token configured"))
				utils.ResponseUnauthorized(w, "Payment callbacks are not accepted")
			})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(callbackTokenHeader)
			if token == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) != nil {
				logger.Warn("Rejected payment callback",
					zap.String("ip", r.RemoteAddr),
					zap.Bool("token_present", token != ""))
				utils.ResponseUnauthorized(w, "Invalid callback token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
