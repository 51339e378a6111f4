package usecase

import (
	"context"
	"fmt"

	"barber-booking/internal/data/entity"
	"barber-booking/internal/data/repository"
	"barber-booking/pkg/metrics"
	"barber-booking/pkg/mq"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingStateMachine is the only writer of Booking.Status after creation.
type BookingStateMachine struct {
	repo      *repository.Repository
	publisher mq.EventPublisher
	cfg       engineConfig
	log       *zap.Logger
}

func NewBookingStateMachine(repo *repository.Repository, publisher mq.EventPublisher, cfg engineConfig, log *zap.Logger) *BookingStateMachine {
	return &BookingStateMachine{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		log:       log.With(zap.String("service", "booking_state")),
	}
}

// Transition moves a booking to target and publishes the matching event.
func (m *BookingStateMachine) Transition(ctx context.Context, id uuid.UUID, target entity.BookingStatus) (*entity.Booking, error) {
	b, err := m.transition(ctx, m.repo, id, target)
	if err != nil {
		return nil, err
	}
	m.Announce(ctx, b)
	return b, nil
}

// transition runs against repo, which may be a transaction. Callers publish after commit.
func (m *BookingStateMachine) transition(ctx context.Context, repo *repository.Repository, id uuid.UUID, target entity.BookingStatus) (*entity.Booking, error) {
	if !target.IsValid() {
		return nil, fieldError("status", fmt.Sprintf("Unknown booking status %q", target))
	}

	b, err := repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("transition booking %s: %w", id, err)
	}
	if b == nil {
		return nil, newError(KindNotFound, "booking %s not found", id)
	}

	if !b.Status.CanTransitionTo(target) {
		return nil, newError(KindInvalidTransition, "booking %s cannot move from %s to %s", b.BookingCode, b.Status, target)
	}

	switch target {
	case entity.BookingStatusConfirmed:
		if err := m.checkVoucherRedeemed(ctx, repo, b); err != nil {
			return nil, err
		}
	case entity.BookingStatusNoShow:
		starts, err := b.StartsAt(m.cfg.loc)
		if err != nil {
			return nil, fmt.Errorf("transition booking %s: %w", id, err)
		}
		if m.cfg.now().Before(starts) {
			return nil, newError(KindInvalidTransition, "booking %s cannot be marked no-show before %s", b.BookingCode, starts.Format("2006-01-02 15:04"))
		}
	}

	now := m.cfg.now()
	ok, err := repo.Booking.UpdateStatus(ctx, b.ID, b.Status, target, now)
	if err != nil {
		return nil, fmt.Errorf("transition booking %s: %w", id, err)
	}
	if !ok {
		return nil, newError(KindInvalidTransition, "booking %s changed status concurrently, reload and retry", b.BookingCode)
	}

	m.log.Info("Booking status changed",
		zap.String("booking_id", b.ID.String()),
		zap.String("from", string(b.Status)),
		zap.String("to", string(target)),
	)

	b.Status = target
	b.UpdatedAt = now
	switch target {
	case entity.BookingStatusCompleted:
		b.CompletedAt = &now
	case entity.BookingStatusCancelled:
		b.CancelledAt = &now
	}

	metrics.IncTransition(string(target))
	return b, nil
}

// checkVoucherRedeemed keeps a discounted booking from being confirmed before its voucher is consumed.
func (m *BookingStateMachine) checkVoucherRedeemed(ctx context.Context, repo *repository.Repository, b *entity.Booking) error {
	if b.VoucherID == nil {
		return nil
	}

	v, err := repo.Voucher.FindByID(ctx, *b.VoucherID)
	if err != nil {
		return fmt.Errorf("check voucher for booking %s: %w", b.ID, err)
	}
	if v == nil || !v.Redeemed || v.BookingID == nil || *v.BookingID != b.ID {
		return newError(KindInvalidTransition, "booking %s carries a voucher that has not been redeemed for it", b.BookingCode)
	}
	return nil
}

var statusEvents = map[entity.BookingStatus]string{
	entity.BookingStatusBooked:    mq.KeyBookingCreated,
	entity.BookingStatusConfirmed: mq.KeyBookingConfirmed,
	entity.BookingStatusCancelled: mq.KeyBookingCancelled,
	entity.BookingStatusCompleted: mq.KeyBookingCompleted,
	entity.BookingStatusNoShow:    mq.KeyBookingNoShow,
}

// Announce publishes the event for the booking's current status. Failures are logged only.
func (m *BookingStateMachine) Announce(ctx context.Context, b *entity.Booking) {
	key, ok := statusEvents[b.Status]
	if !ok {
		return
	}

	event := mq.BookingEvent{
		BookingID:     b.ID.String(),
		BookingCode:   b.BookingCode,
		CustomerID:    b.CustomerID.String(),
		BranchID:      b.BranchID.String(),
		Date:          b.DateString(),
		Time:          b.Time,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		FinalPrice:    b.FinalPrice,
		OccurredAt:    m.cfg.now(),
	}
	if b.BarberID != nil {
		event.BarberID = b.BarberID.String()
	}

	if err := m.publisher.PublishJSON(ctx, key, event); err != nil {
		m.log.Warn("Failed to publish booking event",
			zap.Error(err),
			zap.String("key", key),
			zap.String("booking_id", b.ID.String()),
		)
	}
}
