package usecase

import (
	"time"

	"barber-booking/internal/data/repository"
	"barber-booking/pkg/mq"
	"barber-booking/pkg/payment"
	"barber-booking/pkg/utils"

	"go.uber.org/zap"
)

// engineConfig is the slice of configuration the booking engine reads.
type engineConfig struct {
	loc            *time.Location
	now            func() time.Time
	paymentTimeout time.Duration
	currency       string
	successURL     string
	failureURL     string
}

func newEngineConfig(config *utils.Config) engineConfig {
	timeout := config.Payment.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return engineConfig{
		loc:            config.App.Location(),
		now:            time.Now,
		paymentTimeout: timeout,
		currency:       config.Payment.Currency,
		successURL:     config.Payment.SuccessURL,
		failureURL:     config.Payment.FailureURL,
	}
}

type Service struct {
	Availability AvailabilityService
	Booking      BookingService
}

func NewService(repo *repository.Repository, config *utils.Config, gateway payment.Gateway, publisher mq.EventPublisher, log *zap.Logger) *Service {
	return newService(repo, newEngineConfig(config), gateway, publisher, log)
}

func newService(repo *repository.Repository, cfg engineConfig, gateway payment.Gateway, publisher mq.EventPublisher, log *zap.Logger) *Service {
	availability := NewAvailabilityService(repo, cfg, log)
	states := NewBookingStateMachine(repo, publisher, cfg, log)

	return &Service{
		Availability: availability,
		Booking: NewBookingService(
			repo,
			availability,
			NewConflictGuard(repo, log),
			NewVoucherLedger(repo, publisher, cfg, log),
			states,
			NewPaymentOrchestrator(repo, gateway, states, publisher, cfg, log),
			cfg,
			log,
		),
	}
}
