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

// VoucherLedger consumes vouchers exactly once.
type VoucherLedger struct {
	repo      *repository.Repository
	publisher mq.EventPublisher
	cfg       engineConfig
	log       *zap.Logger
}

func NewVoucherLedger(repo *repository.Repository, publisher mq.EventPublisher, cfg engineConfig, log *zap.Logger) *VoucherLedger {
	return &VoucherLedger{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		log:       log.With(zap.String("service", "voucher")),
	}
}

// Validate checks that code is usable by userID right now, without consuming it.
func (l *VoucherLedger) Validate(ctx context.Context, code string, userID uuid.UUID) (*entity.Voucher, error) {
	code = entity.NormalizeVoucherCode(code)
	if code == "" {
		return nil, fieldError("voucher_code", "This field is required")
	}

	v, err := l.repo.Voucher.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("validate voucher: %w", err)
	}
	if err := l.check(v, code, userID); err != nil {
		return nil, err
	}
	return v, nil
}

func (l *VoucherLedger) check(v *entity.Voucher, code string, userID uuid.UUID) error {
	// A voucher owned by someone else is reported as missing so codes cannot be probed.
	if v == nil || !v.UsableBy(userID) {
		return newError(KindVoucherNotFound, "voucher %s not found", code)
	}
	if v.Redeemed {
		return newError(KindVoucherAlreadyRedeemed, "voucher %s has already been redeemed", code)
	}
	if v.IsExpired(l.cfg.now()) {
		return newError(KindVoucherExpired, "voucher %s expired on %s", code, v.ExpiresAt.In(l.cfg.loc).Format("2006-01-02 15:04"))
	}
	return nil
}

// Redeem marks the voucher consumed by bookingID. Concurrent callers race on a
// compare-and-set; the loser gets ErrVoucherAlreadyRedeemed. Repeating a redemption
// for the same booking succeeds without changing anything.
func (l *VoucherLedger) Redeem(ctx context.Context, code string, userID, bookingID uuid.UUID) (*entity.Voucher, error) {
	code = entity.NormalizeVoucherCode(code)

	v, err := l.repo.Voucher.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("redeem voucher: %w", err)
	}
	if v != nil && v.Redeemed && v.BookingID != nil && *v.BookingID == bookingID {
		return v, nil
	}
	if err := l.check(v, code, userID); err != nil {
		metrics.IncVoucherRedemption(string(KindOf(err)))
		return nil, err
	}

	now := l.cfg.now()
	ok, err := l.repo.Voucher.Redeem(ctx, v.ID, userID, bookingID, now)
	if err != nil {
		return nil, fmt.Errorf("redeem voucher %s: %w", code, err)
	}

	if !ok {
		// Lost the race or the voucher changed under us; re-read to say why.
		current, err := l.repo.Voucher.FindByID(ctx, v.ID)
		if err != nil {
			return nil, fmt.Errorf("redeem voucher %s: %w", code, err)
		}
		if current != nil && current.Redeemed && current.BookingID != nil && *current.BookingID == bookingID {
			return current, nil
		}
		cerr := l.check(current, code, userID)
		if cerr == nil {
			cerr = newError(KindVoucherAlreadyRedeemed, "voucher %s has already been redeemed", code)
		}
		metrics.IncVoucherRedemption(string(KindOf(cerr)))
		l.log.Info("Voucher redemption lost",
			zap.String("code", code),
			zap.String("booking_id", bookingID.String()),
			zap.String("reason", string(KindOf(cerr))),
		)
		return nil, cerr
	}

	v.Redeemed = true
	v.RedeemedBy = &userID
	v.BookingID = &bookingID
	v.RedeemedAt = &now

	metrics.IncVoucherRedemption("redeemed")
	l.log.Info("Voucher redeemed",
		zap.String("code", code),
		zap.String("user_id", userID.String()),
		zap.String("booking_id", bookingID.String()),
	)

	if err := l.publisher.PublishJSON(ctx, mq.KeyVoucherRedeemed, mq.VoucherRedeemedEvent{
		VoucherID:  v.ID.String(),
		Code:       v.Code,
		BookingID:  bookingID.String(),
		UserID:     userID.String(),
		OccurredAt: now,
	}); err != nil {
		l.log.Warn("Failed to publish voucher event", zap.Error(err), zap.String("code", code))
	}

	return v, nil
}
