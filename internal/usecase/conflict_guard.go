package usecase

import (
	"context"
	"errors"
	"time"

	"barber-booking/internal/data/entity"
	"barber-booking/internal/data/repository"
	"barber-booking/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlotKey identifies one bookable unit: a barber at a date and slot time.
type SlotKey struct {
	BarberID uuid.UUID
	Date     time.Time
	Time     string
}

// ConflictGuard re-checks a slot and lets the caller write its booking in the same transaction.
type ConflictGuard struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewConflictGuard(repo *repository.Repository, log *zap.Logger) *ConflictGuard {
	return &ConflictGuard{
		repo: repo,
		log:  log.With(zap.String("service", "conflict_guard")),
	}
}

// Reserve locks key, fails with ErrSlotConflict if an active booking holds it, and otherwise
// runs create inside the same transaction. A unique-index violation from create is also a conflict.
func (g *ConflictGuard) Reserve(ctx context.Context, key SlotKey, create func(tx *repository.Repository) error) error {
	err := g.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if err := tx.Booking.LockSlot(ctx, key.BarberID, key.Date, key.Time); err != nil {
			return err
		}

		active, err := tx.Booking.FindActiveBySlot(ctx, key.BarberID, key.Date, key.Time)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return ErrSlotConflict
		}

		return create(tx)
	})

	if errors.Is(err, repository.ErrSlotTaken) || errors.Is(err, ErrSlotConflict) {
		metrics.IncSlotConflict()
		g.log.Info("Slot conflict",
			zap.String("barber_id", key.BarberID.String()),
			zap.String("date", key.Date.Format(entity.DateLayout)),
			zap.String("time", key.Time),
		)
		return newError(KindSlotConflict, "%s on %s is no longer available, please pick another slot",
			key.Time, key.Date.Format(entity.DateLayout))
	}
	return err
}
