package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"barber-booking/internal/data/entity"
	"barber-booking/internal/dto/request"
	"barber-booking/pkg/mq"
	"barber-booking/pkg/payment"

	"github.com/google/uuid"
)

var requestPay = request.PayBookingRequest{PaymentMethod: "gcash"}

func webhookBody(reference string, outcome payment.Outcome) []byte {
	return []byte(fmt.Sprintf(`{"reference":%q,"status":%q}`, reference, outcome))
}

func TestPayNowSucceeds(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Booking.CreateBooking(context.Background(), f.customer.ID, f.createRequest(&f.barberA, "10:00", "pay_now"))
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if resp.Booking.Status != entity.BookingStatusConfirmed || resp.Booking.PaymentStatus != entity.PaymentStatusPaid {
		t.Errorf("booking = %s/%s, want confirmed/paid", resp.Booking.Status, resp.Booking.PaymentStatus)
	}

	req := f.gateway.lastRequest()
	if req == nil || req.Amount != 500 || req.CustomerEmail != f.customer.Email || req.Currency != "PHP" {
		t.Errorf("gateway request = %+v", req)
	}

	got, err := f.svc.Booking.GetBooking(context.Background(), Actor{UserID: f.customer.ID}, uuid.MustParse(resp.Booking.ID))
	if err != nil {
		t.Fatalf("GetBooking() error = %v", err)
	}
	if got.LastPayment == nil || got.LastPayment.Outcome != string(payment.OutcomeSucceeded) {
		t.Errorf("last payment = %+v", got.LastPayment)
	}
}

func TestPayNowRedirectThenWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.outcome = payment.OutcomePending
	f.gateway.redirect = "https://pay.example.com/checkout/abc"

	resp, err := f.svc.Booking.CreateBooking(ctx, f.customer.ID, f.createRequest(&f.barberA, "11:00", "pay_now"))
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if resp.Payment == nil || resp.Payment.RedirectURL != f.gateway.redirect {
		t.Fatalf("payment = %+v, want redirect", resp.Payment)
	}
	if resp.Booking.Status != entity.BookingStatusBooked || resp.Booking.PaymentStatus != entity.PaymentStatusUnpaid {
		t.Fatalf("booking = %s/%s, want booked/unpaid", resp.Booking.Status, resp.Booking.PaymentStatus)
	}

	ref := f.gateway.lastRequest().ReferenceID
	for i := 0; i < 2; i++ {
		got, err := f.svc.Booking.HandlePaymentWebhook(ctx, nil, webhookBody(ref, payment.OutcomeSucceeded))
		if err != nil {
			t.Fatalf("HandlePaymentWebhook() #%d error = %v", i, err)
		}
		if got.Status != entity.BookingStatusConfirmed || got.PaymentStatus != entity.PaymentStatusPaid {
			t.Fatalf("booking after webhook #%d = %s/%s", i, got.Status, got.PaymentStatus)
		}
	}

	if n := f.events.count(mq.KeyBookingConfirmed); n != 1 {
		t.Errorf("booking.confirmed events = %d, want 1", n)
	}
	if n := f.gateway.calls(); n != 1 {
		t.Errorf("gateway calls = %d, want 1", n)
	}
}

func TestWebhookByExternalReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.outcome = payment.OutcomePending
	f.gateway.redirect = "https://pay.example.com/checkout/ext"

	resp, err := f.svc.Booking.CreateBooking(ctx, f.customer.ID, f.createRequest(&f.barberA, "11:30", "pay_now"))
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}

	got, err := f.svc.Booking.HandlePaymentWebhook(ctx, nil, webhookBody(resp.Payment.ExternalRef, payment.OutcomeSucceeded))
	if err != nil {
		t.Fatalf("HandlePaymentWebhook() error = %v", err)
	}
	if got.PaymentStatus != entity.PaymentStatusPaid {
		t.Errorf("payment status = %s, want paid", got.PaymentStatus)
	}
}

func TestWebhookFailureLeavesBookingResumable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.outcome = payment.OutcomePending
	f.gateway.redirect = "https://pay.example.com/checkout/fail"

	resp, err := f.svc.Booking.CreateBooking(ctx, f.customer.ID, f.createRequest(&f.barberA, "12:00", "pay_now"))
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	ref := f.gateway.lastRequest().ReferenceID

	got, err := f.svc.Booking.HandlePaymentWebhook(ctx, nil, webhookBody(ref, payment.OutcomeFailed))
	if err != nil {
		t.Fatalf("HandlePaymentWebhook() error = %v", err)
	}
	if got.Status != entity.BookingStatusBooked || got.PaymentStatus != entity.PaymentStatusUnpaid {
		t.Errorf("booking = %s/%s, want booked/unpaid", got.Status, got.PaymentStatus)
	}
	if f.events.count(mq.KeyPaymentFailed) != 1 {
		t.Errorf("payment.failed events = %d, want 1", f.events.count(mq.KeyPaymentFailed))
	}

	// Retry is a fresh, explicit attempt.
	f.gateway.outcome = payment.OutcomeSucceeded
	paid, err := f.svc.Booking.PayBooking(ctx, f.customer.ID, uuid.MustParse(resp.Booking.ID), &requestPay)
	if err != nil {
		t.Fatalf("PayBooking() error = %v", err)
	}
	if paid.Booking.Status != entity.BookingStatusConfirmed || paid.Booking.PaymentStatus != entity.PaymentStatusPaid {
		t.Errorf("booking after retry = %s/%s", paid.Booking.Status, paid.Booking.PaymentStatus)
	}

	_, err = f.svc.Booking.PayBooking(ctx, f.customer.ID, uuid.MustParse(resp.Booking.ID), &requestPay)
	wantKind(t, err, KindInvalidTransition)
}

func TestWebhookAfterCancellationDoesNotConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gateway.outcome = payment.OutcomePending
	f.gateway.redirect = "https://pay.example.com/checkout/late"

	resp, err := f.svc.Booking.CreateBooking(ctx, f.customer.ID, f.createRequest(&f.barberA, "13:00", "pay_now"))
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	id := uuid.MustParse(resp.Booking.ID)
	if _, err := f.svc.Booking.AdvanceBooking(ctx, Actor{UserID: f.customer.ID}, id, entity.BookingStatusCancelled); err != nil {
		t.Fatalf("cancel error = %v", err)
	}

	got, err := f.svc.Booking.HandlePaymentWebhook(ctx, nil, webhookBody(f.gateway.lastRequest().ReferenceID, payment.OutcomeSucceeded))
	if err != nil {
		t.Fatalf("HandlePaymentWebhook() error = %v", err)
	}
	if got.Status != entity.BookingStatusCancelled || got.PaymentStatus != entity.PaymentStatusUnpaid {
		t.Errorf("booking = %s/%s, want cancelled/unpaid", got.Status, got.PaymentStatus)
	}
}

func TestWebhookRejectsGarbageAndUnknownReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Booking.HandlePaymentWebhook(ctx, nil, []byte("not json"))
	wantKind(t, err, KindValidation)

	_, err = f.svc.Booking.HandlePaymentWebhook(ctx, nil, webhookBody("booking_missing_1", payment.OutcomeSucceeded))
	wantKind(t, err, KindNotFound)
}

func TestPayProviderErrorIsFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = errors.New("connection refused")

	_, err := f.svc.Booking.CreateBooking(context.Background(), f.customer.ID, f.createRequest(&f.barberA, "14:00", "pay_now"))
	wantKind(t, err, KindPaymentFailed)
	if code := err.(*Error).Details["failure_code"]; code != "PROVIDER_ERROR" {
		t.Errorf("failure_code = %q, want PROVIDER_ERROR", code)
	}
}

func TestPayConfirmedUnpaidBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Booking.CreateBooking(ctx, f.customer.ID, f.createRequest(&f.barberA, "15:00", "pay_later"))
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if resp.Booking.Status != entity.BookingStatusConfirmed || resp.Booking.PaymentStatus != entity.PaymentStatusUnpaid {
		t.Fatalf("booking = %s/%s, want confirmed/unpaid", resp.Booking.Status, resp.Booking.PaymentStatus)
	}

	paid, err := f.svc.Booking.PayBooking(ctx, f.customer.ID, uuid.MustParse(resp.Booking.ID), &requestPay)
	if err != nil {
		t.Fatalf("PayBooking() error = %v", err)
	}
	if paid.Booking.Status != entity.BookingStatusConfirmed || paid.Booking.PaymentStatus != entity.PaymentStatusPaid {
		t.Errorf("booking = %s/%s, want confirmed/paid", paid.Booking.Status, paid.Booking.PaymentStatus)
	}
	if n := f.events.count(mq.KeyBookingConfirmed); n != 1 {
		t.Errorf("booking.confirmed events = %d, want 1", n)
	}
}
