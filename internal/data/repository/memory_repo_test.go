package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"barber-booking/internal/data/entity"

	"github.com/google/uuid"
)

func newActiveBooking(barberID uuid.UUID, date time.Time, slot string) *entity.Booking {
	return &entity.Booking{
		Base:          entity.Base{ID: uuid.New()},
		CustomerID:    uuid.New(),
		BarberID:      &barberID,
		Date:          date,
		Time:          slot,
		Status:        entity.BookingStatusBooked,
		PaymentStatus: entity.PaymentStatusUnpaid,
	}
}

func TestMemoryBookingCreateRejectsSecondActiveBooking(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(NewMemoryStore())
	barberID := uuid.New()
	date := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	first := newActiveBooking(barberID, date, "10:00")
	if err := repo.Booking.Create(ctx, first); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	if err := repo.Booking.Create(ctx, newActiveBooking(barberID, date, "10:00")); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("second Create() error = %v, want ErrSlotTaken", err)
	}

	ok, err := repo.Booking.UpdateStatus(ctx, first.ID, entity.BookingStatusBooked, entity.BookingStatusCancelled, time.Now())
	if err != nil || !ok {
		t.Fatalf("UpdateStatus() = %v, %v", ok, err)
	}

	if err := repo.Booking.Create(ctx, newActiveBooking(barberID, date, "10:00")); err != nil {
		t.Fatalf("Create() after cancel error = %v", err)
	}
}

func TestMemoryWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(NewMemoryStore())
	b := newActiveBooking(uuid.New(), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "11:30")
	boom := errors.New("boom")

	err := repo.WithTx(ctx, func(tx *Repository) error {
		if err := tx.Booking.Create(ctx, b); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	got, err := repo.Booking.FindByID(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("booking survived a rolled back transaction: %+v", got)
	}
}

func TestMemoryWithTxNested(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(NewMemoryStore())

	err := repo.WithTx(ctx, func(tx *Repository) error {
		return tx.WithTx(ctx, func(inner *Repository) error {
			return inner.Booking.Create(ctx, newActiveBooking(uuid.New(), time.Now().UTC().Truncate(24*time.Hour), "12:00"))
		})
	})
	if err != nil {
		t.Fatalf("nested WithTx() error = %v", err)
	}
}

func TestMemoryVoucherRedeemIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewMemoryRepository(store)
	now := time.Now()

	voucher := entity.Voucher{
		Base:      entity.Base{ID: uuid.New()},
		Code:      "SAVE20",
		Value:     20,
		ExpiresAt: now.Add(time.Hour),
	}
	store.PutVoucher(voucher)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Voucher.Redeem(ctx, voucher.ID, uuid.New(), uuid.New(), now)
			if err != nil {
				t.Errorf("Redeem() error = %v", err)
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("%d redemptions succeeded, want 1", wins.Load())
	}

	got, _ := repo.Voucher.FindByID(ctx, voucher.ID)
	if !got.Redeemed || got.RedeemedAt == nil || got.BookingID == nil {
		t.Errorf("voucher not marked redeemed: %+v", got)
	}
}

func TestMemoryVoucherRedeemRejectsExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewMemoryRepository(store)
	now := time.Now()

	voucher := entity.Voucher{Base: entity.Base{ID: uuid.New()}, Code: "OLD", ExpiresAt: now.Add(-time.Minute)}
	store.PutVoucher(voucher)

	ok, err := repo.Voucher.Redeem(ctx, voucher.ID, uuid.New(), uuid.New(), now)
	if err != nil || ok {
		t.Fatalf("Redeem() = %v, %v; want false, nil", ok, err)
	}
}

func TestMemoryFindByCustomerIDPaginates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(NewMemoryStore())
	customerID := uuid.New()
	date := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	for _, slot := range []string{"10:00", "10:30", "11:00"} {
		b := newActiveBooking(uuid.New(), date, slot)
		b.CustomerID = customerID
		if err := repo.Booking.Create(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	page, _ := repo.Booking.FindByCustomerID(ctx, customerID, 2, 0)
	if len(page) != 2 || page[0].Time != "11:00" {
		t.Fatalf("first page = %d bookings starting %v", len(page), page)
	}
	rest, _ := repo.Booking.FindByCustomerID(ctx, customerID, 2, 2)
	if len(rest) != 1 || rest[0].Time != "10:00" {
		t.Fatalf("second page = %v", rest)
	}
	total, _ := repo.Booking.CountByCustomerID(ctx, customerID)
	if total != 3 {
		t.Errorf("CountByCustomerID() = %d", total)
	}
}
