package repository

import (
	"context"
	"errors"
	"fmt"

	"barber-booking/internal/data/entity"
	"barber-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PaymentRepository keeps an audit trail of provider requests.
type PaymentRepository interface {
	Create(ctx context.Context, attempt *entity.PaymentAttempt) error
	// FindByReference looks an attempt up by our reference id or the provider's external reference.
	FindByReference(ctx context.Context, ref string) (*entity.PaymentAttempt, error)
	FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.PaymentAttempt, error)
	UpdateOutcome(ctx context.Context, id uuid.UUID, outcome entity.PaymentOutcome, failureCode *string) error
}

type paymentRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewPaymentRepository(db database.Querier, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `
	id, booking_id, amount, method, provider, external_ref, reference_id,
	outcome, redirect_url, failure_code, created_at, updated_at
`

func scanPayment(row pgx.Row) (*entity.PaymentAttempt, error) {
	var p entity.PaymentAttempt
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.Amount,
		&p.Method,
		&p.Provider,
		&p.ExternalRef,
		&p.ReferenceID,
		&p.Outcome,
		&p.RedirectURL,
		&p.FailureCode,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *entity.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.BookingID,
		p.Amount,
		p.Method,
		p.Provider,
		p.ExternalRef,
		p.ReferenceID,
		p.Outcome,
		p.RedirectURL,
		p.FailureCode,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to record payment attempt",
			zap.Error(err),
			zap.String("booking_id", p.BookingID.String()),
			zap.String("reference_id", p.ReferenceID),
		)
		return fmt.Errorf("create payment attempt for booking %s: %w", p.BookingID, err)
	}

	return nil
}

func (r *paymentRepository) FindByReference(ctx context.Context, ref string) (*entity.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payment_attempts
		WHERE reference_id = $1 OR external_ref = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	p, err := scanPayment(r.db.QueryRow(ctx, query, ref))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment attempt", zap.Error(err), zap.String("reference", ref))
		return nil, fmt.Errorf("find payment attempt %s: %w", ref, err)
	}

	return p, nil
}

func (r *paymentRepository) FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payment_attempts
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	p, err := scanPayment(r.db.QueryRow(ctx, query, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment attempt", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("find payment attempt for booking %s: %w", bookingID, err)
	}

	return p, nil
}

func (r *paymentRepository) UpdateOutcome(ctx context.Context, id uuid.UUID, outcome entity.PaymentOutcome, failureCode *string) error {
	query := `
		UPDATE payment_attempts
		SET outcome = $2, failure_code = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, outcome, failureCode)
	if err != nil {
		r.log.Error("Failed to update payment attempt", zap.Error(err), zap.String("payment_id", id.String()))
		return fmt.Errorf("update payment attempt %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return errPaymentNotFound(id)
	}

	return nil
}
