package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"barber-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"go.uber.org/zap/zaptest"
)

func newMockRepository(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool() error = %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mock.Close()
	})
	return NewRepository(mock, zaptest.NewLogger(t)), mock
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

var bookingColumnNames = []string{
	"id", "booking_code", "customer_id", "service_id", "barber_id", "branch_id",
	"booking_date", "booking_time", "status", "payment_status", "payment_method", "voucher_id",
	"price", "discount_amount", "final_price", "notes", "completed_at", "cancelled_at",
	"created_at", "updated_at",
}

func slotLockKey(barberID uuid.UUID, date time.Time, slot string) string {
	return fmt.Sprintf("booking-slot:%s:%s:%s", barberID, date.Format(entity.DateLayout), slot)
}

var (
	lockSQL       = regexp.QuoteMeta(`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`)
	activeSlotSQL = regexp.QuoteMeta(`WHERE barber_id = $1 AND booking_date = $2 AND booking_time = $3 AND status IN ('booked', 'confirmed') FOR UPDATE`)
	insertSQL     = regexp.QuoteMeta(`INSERT INTO bookings`)
)

func TestPostgresReserveSlotInTransaction(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepository(t)
	barberID := uuid.New()
	date := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	booking := newActiveBooking(barberID, date, "10:00")

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).
		WithArgs(slotLockKey(barberID, date, "10:00")).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(activeSlotSQL).
		WithArgs(barberID, date, "10:00").
		WillReturnRows(pgxmock.NewRows(bookingColumnNames))
	mock.ExpectExec(insertSQL).
		WithArgs(anyArgs(20)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.WithTx(ctx, func(tx *Repository) error {
		if err := tx.Booking.LockSlot(ctx, barberID, date, "10:00"); err != nil {
			return err
		}
		active, err := tx.Booking.FindActiveBySlot(ctx, barberID, date, "10:00")
		if err != nil {
			return err
		}
		if len(active) != 0 {
			t.Errorf("active bookings = %d, want 0", len(active))
		}
		return tx.Booking.Create(ctx, booking)
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
}

func TestPostgresCreateMapsActiveSlotViolation(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepository(t)
	barberID := uuid.New()
	date := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).
		WithArgs(slotLockKey(barberID, date, "10:00")).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(activeSlotSQL).
		WithArgs(barberID, date, "10:00").
		WillReturnRows(pgxmock.NewRows(bookingColumnNames))
	mock.ExpectExec(insertSQL).
		WithArgs(anyArgs(20)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: activeSlotIndex})
	mock.ExpectRollback()

	err := repo.WithTx(ctx, func(tx *Repository) error {
		if err := tx.Booking.LockSlot(ctx, barberID, date, "10:00"); err != nil {
			return err
		}
		if _, err := tx.Booking.FindActiveBySlot(ctx, barberID, date, "10:00"); err != nil {
			return err
		}
		return tx.Booking.Create(ctx, newActiveBooking(barberID, date, "10:00"))
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("WithTx() error = %v, want ErrSlotTaken", err)
	}
}

func TestPostgresCreateOtherUniqueViolation(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(insertSQL).
		WithArgs(anyArgs(20)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "bookings_booking_code_key"})

	err := repo.Booking.Create(context.Background(), newActiveBooking(uuid.New(), time.Now(), "10:00"))
	if err == nil || errors.Is(err, ErrSlotTaken) {
		t.Fatalf("Create() error = %v, want a plain failure", err)
	}
}

func TestPostgresFindActiveBySlotScansRows(t *testing.T) {
	repo, mock := newMockRepository(t)
	barberID := uuid.New()
	date := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 5, 4, 1, 0, 0, 0, time.UTC)
	id := uuid.New()

	rows := pgxmock.NewRows(bookingColumnNames).AddRow(
		id, "K3JD82QZ", uuid.New(), uuid.New(), &barberID, uuid.New(),
		date, "10:00", "confirmed", "paid", nil, nil,
		500.0, 0.0, 500.0, nil, nil, nil,
		created, created,
	)
	mock.ExpectQuery(activeSlotSQL).WithArgs(barberID, date, "10:00").WillReturnRows(rows)

	active, err := repo.Booking.FindActiveBySlot(context.Background(), barberID, date, "10:00")
	if err != nil {
		t.Fatalf("FindActiveBySlot() error = %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active bookings = %d, want 1", len(active))
	}
	got := active[0]
	if got.ID != id || got.Status != entity.BookingStatusConfirmed || got.PaymentStatus != entity.PaymentStatusPaid || *got.BarberID != barberID {
		t.Errorf("booking = %+v", got)
	}
}

func TestPostgresFindByIDMissing(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM bookings WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(bookingColumnNames))

	b, err := repo.Booking.FindByID(context.Background(), id)
	if err != nil || b != nil {
		t.Fatalf("FindByID() = %v, %v, want nil, nil", b, err)
	}
}

func TestPostgresCompareAndSetUpdates(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	at := time.Date(2026, 5, 5, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		sql     string
		args    []any
		rows    int64
		run     func(repo *Repository) (bool, error)
		wantHit bool
	}{
		{
			name: "status moved",
			sql:  `WHERE id = $1 AND status = $2`,
			args: []any{id, entity.BookingStatusBooked, entity.BookingStatusConfirmed, at},
			rows: 1,
			run: func(repo *Repository) (bool, error) {
				return repo.Booking.UpdateStatus(ctx, id, entity.BookingStatusBooked, entity.BookingStatusConfirmed, at)
			},
			wantHit: true,
		},
		{
			name: "status changed underneath",
			sql:  `WHERE id = $1 AND status = $2`,
			args: []any{id, entity.BookingStatusBooked, entity.BookingStatusCancelled, at},
			rows: 0,
			run: func(repo *Repository) (bool, error) {
				return repo.Booking.UpdateStatus(ctx, id, entity.BookingStatusBooked, entity.BookingStatusCancelled, at)
			},
		},
		{
			name: "already paid",
			sql:  `WHERE id = $1 AND payment_status = 'unpaid'`,
			args: []any{id, "gcash"},
			rows: 0,
			run: func(repo *Repository) (bool, error) {
				return repo.Booking.MarkPaid(ctx, id, "gcash")
			},
		},
		{
			name: "voucher redeemed",
			sql:  `WHERE id = $1 AND redeemed = false AND expires_at > $4`,
			args: []any{id, pgxmock.AnyArg(), pgxmock.AnyArg(), at},
			rows: 1,
			run: func(repo *Repository) (bool, error) {
				return repo.Voucher.Redeem(ctx, id, uuid.New(), uuid.New(), at)
			},
			wantHit: true,
		},
		{
			name: "voucher lost the race",
			sql:  `WHERE id = $1 AND redeemed = false AND expires_at > $4`,
			args: []any{id, pgxmock.AnyArg(), pgxmock.AnyArg(), at},
			rows: 0,
			run: func(repo *Repository) (bool, error) {
				return repo.Voucher.Redeem(ctx, id, uuid.New(), uuid.New(), at)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			mock.ExpectExec(regexp.QuoteMeta(tt.sql)).
				WithArgs(tt.args...).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.rows))

			hit, err := tt.run(repo)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if hit != tt.wantHit {
				t.Errorf("updated = %v, want %v", hit, tt.wantHit)
			}
		})
	}
}
