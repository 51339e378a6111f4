// internal/wire/wire.go
package wire

import (
	"net/http"

	"barber-booking/internal/adaptor"
	"barber-booking/internal/data/repository"
	"barber-booking/internal/usecase"
	"barber-booking/pkg/middleware"
	"barber-booking/pkg/mq"
	"barber-booking/pkg/payment"
	"barber-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Router *chi.Mux
}

// Wiring builds the engine and mounts every route. rdb may be nil.
func Wiring(
	repo *repository.Repository,
	config *utils.Config,
	gateway payment.Gateway,
	publisher mq.EventPublisher,
	rdb *redis.Client,
	logger *zap.Logger,
) *App {
	service := usecase.NewService(repo, config, gateway, publisher, logger)
	handler := adaptor.NewHandler(service, logger)
	auth := middleware.NewSessionAuth(repo, rdb, config.Redis.SessionTTL, logger)

	router := setupRouter(handler, repo, auth, config, gateway, rdb, logger)

	return &App{
		Router: router,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	auth *middleware.SessionAuth,
	config *utils.Config,
	gateway payment.Gateway,
	rdb *redis.Client,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.CORSOrigins...))
	r.Use(middleware.NewRateLimiter(config.RateLimit, rdb, logger).Handler)

	wireAvailability(r, handler.Availability)
	wireBooking(r, handler.Booking, auth, logger)
	wireVoucher(r, handler.Voucher, auth)
	wirePayment(r, handler.Payment, config, gateway, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := repo.Ping(r.Context()); err != nil {
			logger.Error("Health check failed", zap.Error(err))
			utils.ResponseJSON(w, http.StatusServiceUnavailable, false, "unavailable", nil, nil)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
