package usecase

import (
	"context"
	"testing"
	"time"

	"barber-booking/internal/data/entity"
	"barber-booking/pkg/mq"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

func seedBooking(t *testing.T, f *fixture, status entity.BookingStatus, clock string, opts ...func(*entity.Booking)) *entity.Booking {
	t.Helper()
	day, _ := entity.ParseDate(testDate)
	b := &entity.Booking{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: f.now, UpdatedAt: f.now},
		BookingCode:   "SEED" + clock[:2] + clock[3:],
		CustomerID:    f.customer.ID,
		ServiceID:     f.service.ID,
		BarberID:      &f.barberA.ID,
		BranchID:      f.branch.ID,
		Date:          day,
		Time:          clock,
		Status:        status,
		PaymentStatus: entity.PaymentStatusUnpaid,
		Price:         500,
		FinalPrice:    500,
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := f.repo.Booking.Create(context.Background(), b); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func TestTransitionTable(t *testing.T) {
	all := []entity.BookingStatus{
		entity.BookingStatusBooked,
		entity.BookingStatusConfirmed,
		entity.BookingStatusCompleted,
		entity.BookingStatusCancelled,
		entity.BookingStatusNoShow,
	}

	for _, from := range all {
		for _, to := range all {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				f := newFixture(t)
				// Appointment has started so no_show is allowed where the graph permits it.
				f.setNow(time.Date(2026, 5, 5, 10, 5, 0, 0, testLoc))
				states := NewBookingStateMachine(f.repo, f.events, f.cfg, zaptest.NewLogger(t))
				b := seedBooking(t, f, from, "10:00")

				got, err := states.Transition(context.Background(), b.ID, to)

				if from.CanTransitionTo(to) {
					if err != nil {
						t.Fatalf("Transition() error = %v", err)
					}
					if got.Status != to {
						t.Fatalf("status = %s, want %s", got.Status, to)
					}
					return
				}

				wantKind(t, err, KindInvalidTransition)
				if stored := f.booking(t, b.ID.String()); stored.Status != from {
					t.Fatalf("status changed to %s after rejected transition", stored.Status)
				}
			})
		}
	}
}

func TestTransitionNeverReentersBooked(t *testing.T) {
	for _, from := range []entity.BookingStatus{
		entity.BookingStatusConfirmed,
		entity.BookingStatusCompleted,
		entity.BookingStatusCancelled,
		entity.BookingStatusNoShow,
	} {
		f := newFixture(t)
		states := NewBookingStateMachine(f.repo, f.events, f.cfg, zaptest.NewLogger(t))
		b := seedBooking(t, f, from, "11:00")

		_, err := states.Transition(context.Background(), b.ID, entity.BookingStatusBooked)
		wantKind(t, err, KindInvalidTransition)
	}
}

func TestTransitionRejectsNoShowBeforeStart(t *testing.T) {
	f := newFixture(t)
	states := NewBookingStateMachine(f.repo, f.events, f.cfg, zaptest.NewLogger(t))
	b := seedBooking(t, f, entity.BookingStatusConfirmed, "14:00")

	_, err := states.Transition(context.Background(), b.ID, entity.BookingStatusNoShow)
	wantKind(t, err, KindInvalidTransition)

	f.setNow(time.Date(2026, 5, 5, 14, 20, 0, 0, testLoc))
	got, err := states.Transition(context.Background(), b.ID, entity.BookingStatusNoShow)
	if err != nil {
		t.Fatalf("Transition(no_show) error = %v", err)
	}
	if got.Status != entity.BookingStatusNoShow {
		t.Errorf("status = %s", got.Status)
	}
	if f.events.count(mq.KeyBookingNoShow) != 1 {
		t.Errorf("no_show events = %d, want 1", f.events.count(mq.KeyBookingNoShow))
	}
}

func TestConfirmRequiresRedeemedVoucher(t *testing.T) {
	f := newFixture(t)
	states := NewBookingStateMachine(f.repo, f.events, f.cfg, zaptest.NewLogger(t))
	v := f.putVoucher("PENDING", 100, f.now.Add(time.Hour))

	b := seedBooking(t, f, entity.BookingStatusBooked, "15:00", func(b *entity.Booking) {
		b.VoucherID = &v.ID
		b.ApplyDiscount(v.Value)
	})

	_, err := states.Transition(context.Background(), b.ID, entity.BookingStatusConfirmed)
	wantKind(t, err, KindInvalidTransition)

	ledger := NewVoucherLedger(f.repo, f.events, f.cfg, zaptest.NewLogger(t))
	if _, err := ledger.Redeem(context.Background(), v.Code, f.customer.ID, b.ID); err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}

	if _, err := states.Transition(context.Background(), b.ID, entity.BookingStatusConfirmed); err != nil {
		t.Fatalf("Transition(confirmed) after redeem error = %v", err)
	}
}

func TestTransitionUnknownBooking(t *testing.T) {
	f := newFixture(t)
	states := NewBookingStateMachine(f.repo, f.events, f.cfg, zaptest.NewLogger(t))

	_, err := states.Transition(context.Background(), uuid.New(), entity.BookingStatusCancelled)
	wantKind(t, err, KindNotFound)

	_, err = states.Transition(context.Background(), uuid.New(), entity.BookingStatus("archived"))
	wantKind(t, err, KindValidation)
}
