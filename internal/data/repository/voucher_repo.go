package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barber-booking/internal/data/entity"
	"barber-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type VoucherRepository interface {
	FindByCode(ctx context.Context, code string) (*entity.Voucher, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Voucher, error)
	// Redeem sets redeemed=true only if the voucher is still unredeemed and unexpired at now.
	// It reports false when that condition no longer holds.
	Redeem(ctx context.Context, id, userID, bookingID uuid.UUID, now time.Time) (bool, error)
}

type voucherRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewVoucherRepository(db database.Querier, log *zap.Logger) VoucherRepository {
	return &voucherRepository{
		db:  db,
		log: log.With(zap.String("repository", "voucher")),
	}
}

const voucherColumns = `
	id, code, owner_id, branch_id, value, expires_at,
	redeemed, redeemed_by, redeemed_at, booking_id, created_at, updated_at
`

func scanVoucher(row pgx.Row) (*entity.Voucher, error) {
	var v entity.Voucher
	err := row.Scan(
		&v.ID,
		&v.Code,
		&v.OwnerID,
		&v.BranchID,
		&v.Value,
		&v.ExpiresAt,
		&v.Redeemed,
		&v.RedeemedBy,
		&v.RedeemedAt,
		&v.BookingID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *voucherRepository) FindByCode(ctx context.Context, code string) (*entity.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1`

	v, err := scanVoucher(r.db.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find voucher", zap.Error(err), zap.String("code", code))
		return nil, fmt.Errorf("find voucher %s: %w", code, err)
	}

	return v, nil
}

func (r *voucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`

	v, err := scanVoucher(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find voucher", zap.Error(err), zap.String("voucher_id", id.String()))
		return nil, fmt.Errorf("find voucher %s: %w", id, err)
	}

	return v, nil
}

func (r *voucherRepository) Redeem(ctx context.Context, id, userID, bookingID uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE vouchers
		SET redeemed = true, redeemed_by = $2, booking_id = $3, redeemed_at = $4, updated_at = $4
		WHERE id = $1 AND redeemed = false AND expires_at > $4
	`

	result, err := r.db.Exec(ctx, query, id, userID, bookingID, now)
	if err != nil {
		r.log.Error("Failed to redeem voucher",
			zap.Error(err),
			zap.String("voucher_id", id.String()),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("redeem voucher %s: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}
