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

// activeSlotIndex is the partial unique index on (barber_id, booking_date, booking_time)
// for status IN ('booked', 'confirmed').
const activeSlotIndex = "bookings_active_slot_idx"

type BookingRepository interface {
	// Create inserts a booking and returns ErrSlotTaken if the slot is already held.
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByCode(ctx context.Context, code string) (*entity.Booking, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error)

	// LockSlot serialises writers of one (barber, date, time) key until the transaction ends.
	LockSlot(ctx context.Context, barberID uuid.UUID, date time.Time, slot string) error
	FindActiveBySlot(ctx context.Context, barberID uuid.UUID, date time.Time, slot string) ([]*entity.Booking, error)
	FindActiveByBarberAndDate(ctx context.Context, barberID uuid.UUID, date time.Time) ([]*entity.Booking, error)

	// UpdateStatus moves a booking from -> to and reports false if it was not in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, at time.Time) (bool, error)
	// MarkPaid flips payment_status unpaid -> paid and reports false if it was already paid.
	MarkPaid(ctx context.Context, id uuid.UUID, method string) (bool, error)
	SetPaymentMethod(ctx context.Context, id uuid.UUID, method string) error
	// DropVoucher reverts a booking to full price after a failed redemption.
	DropVoucher(ctx context.Context, id uuid.UUID) error
}

type bookingRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBookingRepository(db database.Querier, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `
	id, booking_code, customer_id, service_id, barber_id, branch_id,
	booking_date, booking_time, status, payment_status, payment_method, voucher_id,
	price, discount_amount, final_price, notes, completed_at, cancelled_at,
	created_at, updated_at
`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.BookingCode,
		&b.CustomerID,
		&b.ServiceID,
		&b.BarberID,
		&b.BranchID,
		&b.Date,
		&b.Time,
		&b.Status,
		&b.PaymentStatus,
		&b.PaymentMethod,
		&b.VoucherID,
		&b.Price,
		&b.DiscountAmount,
		&b.FinalPrice,
		&b.Notes,
		&b.CompletedAt,
		&b.CancelledAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*entity.Booking, error) {
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) Create(ctx context.Context, b *entity.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.Exec(ctx, query,
		b.ID,
		b.BookingCode,
		b.CustomerID,
		b.ServiceID,
		b.BarberID,
		b.BranchID,
		b.Date,
		b.Time,
		b.Status,
		b.PaymentStatus,
		b.PaymentMethod,
		b.VoucherID,
		b.Price,
		b.DiscountAmount,
		b.FinalPrice,
		b.Notes,
		b.CompletedAt,
		b.CancelledAt,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if database.IsUniqueViolation(err, activeSlotIndex) {
		return ErrSlotTaken
	}
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("customer_id", b.CustomerID.String()),
			zap.String("booking_time", b.Time),
		)
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking", zap.Error(err), zap.String("booking_id", id.String()))
		return nil, fmt.Errorf("find booking %s: %w", id, err)
	}

	return b, nil
}

func (r *bookingRepository) FindByCode(ctx context.Context, code string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_code = $1`

	b, err := scanBooking(r.db.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by code", zap.Error(err), zap.String("booking_code", code))
		return nil, fmt.Errorf("find booking by code %s: %w", code, err)
	}

	return b, nil
}

func (r *bookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE customer_id = $1
		ORDER BY booking_date DESC, booking_time DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list customer bookings", zap.Error(err), zap.String("customer_id", customerID.String()))
		return nil, fmt.Errorf("list bookings for customer %s: %w", customerID, err)
	}

	return collectBookings(rows)
}

func (r *bookingRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE customer_id = $1`, customerID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count bookings for customer %s: %w", customerID, err)
	}
	return total, nil
}

func (r *bookingRepository) LockSlot(ctx context.Context, barberID uuid.UUID, date time.Time, slot string) error {
	key := fmt.Sprintf("booking-slot:%s:%s:%s", barberID, date.Format(entity.DateLayout), slot)

	if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		r.log.Error("Failed to lock slot", zap.Error(err), zap.String("key", key))
		return fmt.Errorf("lock slot %s: %w", key, err)
	}
	return nil
}

func (r *bookingRepository) FindActiveBySlot(ctx context.Context, barberID uuid.UUID, date time.Time, slot string) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE barber_id = $1 AND booking_date = $2 AND booking_time = $3
		  AND status IN ('booked', 'confirmed')
		FOR UPDATE
	`

	rows, err := r.db.Query(ctx, query, barberID, date, slot)
	if err != nil {
		r.log.Error("Failed to read active bookings for slot", zap.Error(err), zap.String("barber_id", barberID.String()))
		return nil, fmt.Errorf("find active bookings for slot: %w", err)
	}

	return collectBookings(rows)
}

func (r *bookingRepository) FindActiveByBarberAndDate(ctx context.Context, barberID uuid.UUID, date time.Time) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE barber_id = $1 AND booking_date = $2
		  AND status IN ('booked', 'confirmed')
		ORDER BY booking_time
	`

	rows, err := r.db.Query(ctx, query, barberID, date)
	if err != nil {
		r.log.Error("Failed to list active bookings", zap.Error(err), zap.String("barber_id", barberID.String()))
		return nil, fmt.Errorf("find active bookings for barber %s: %w", barberID, err)
	}

	return collectBookings(rows)
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, at time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $3,
		    completed_at = CASE WHEN $3 = 'completed' THEN $4 ELSE completed_at END,
		    cancelled_at = CASE WHEN $3 = 'cancelled' THEN $4 ELSE cancelled_at END,
		    updated_at = $4
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query, id, from, to, at)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update booking %s status: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) MarkPaid(ctx context.Context, id uuid.UUID, method string) (bool, error) {
	query := `
		UPDATE bookings
		SET payment_status = 'paid', payment_method = $2, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'unpaid'
	`

	result, err := r.db.Exec(ctx, query, id, method)
	if err != nil {
		r.log.Error("Failed to mark booking paid", zap.Error(err), zap.String("booking_id", id.String()))
		return false, fmt.Errorf("mark booking %s paid: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) SetPaymentMethod(ctx context.Context, id uuid.UUID, method string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE bookings SET payment_method = $2, updated_at = NOW() WHERE id = $1`, id, method)
	if err != nil {
		return fmt.Errorf("set payment method for booking %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return errBookingNotFound(id)
	}
	return nil
}

func (r *bookingRepository) DropVoucher(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE bookings
		SET voucher_id = NULL, discount_amount = 0, final_price = price, updated_at = NOW()
		WHERE id = $1 AND payment_status = 'unpaid'
	`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		r.log.Error("Failed to drop voucher from booking", zap.Error(err), zap.String("booking_id", id.String()))
		return fmt.Errorf("drop voucher from booking %s: %w", id, err)
	}
	return nil
}
