package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"barber-booking/internal/data/entity"
	"barber-booking/internal/data/repository"
	"barber-booking/pkg/metrics"
	"barber-booking/pkg/mq"
	"barber-booking/pkg/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentResult is the caller-facing outcome of one pay-now attempt.
type PaymentResult struct {
	Outcome     payment.Outcome
	ExternalRef string
	RedirectURL string
	Booking     *entity.Booking
}

// PaymentOrchestrator issues at most one provider call per Pay and folds the result into the booking.
type PaymentOrchestrator struct {
	repo      *repository.Repository
	gateway   payment.Gateway
	states    *BookingStateMachine
	publisher mq.EventPublisher
	cfg       engineConfig
	log       *zap.Logger
}

func NewPaymentOrchestrator(repo *repository.Repository, gateway payment.Gateway, states *BookingStateMachine, publisher mq.EventPublisher, cfg engineConfig, log *zap.Logger) *PaymentOrchestrator {
	return &PaymentOrchestrator{
		repo:      repo,
		gateway:   gateway,
		states:    states,
		publisher: publisher,
		cfg:       cfg,
		log:       log.With(zap.String("service", "payment"), zap.String("provider", gateway.Name())),
	}
}

func (o *PaymentOrchestrator) Supports(method string) bool {
	return o.gateway.Supports(method)
}

// Pay charges the booking's final price. A zero final price settles without calling the provider.
// A failed or timed-out call leaves the booking booked and unpaid and returns ErrPaymentFailed.
func (o *PaymentOrchestrator) Pay(ctx context.Context, b *entity.Booking, method, token string, customer *entity.Customer) (*PaymentResult, error) {
	if b.PaymentStatus == entity.PaymentStatusPaid {
		return nil, newError(KindInvalidTransition, "booking %s is already paid", b.BookingCode)
	}
	if !b.Status.IsActive() {
		return nil, newError(KindInvalidTransition, "booking %s is %s and cannot be paid", b.BookingCode, b.Status)
	}

	if b.FinalPrice <= 0 {
		if method == "" {
			method = "voucher"
		}
		settled, err := o.settle(ctx, b.ID, method)
		if err != nil {
			return nil, err
		}
		o.log.Info("Zero-price booking settled without provider call", zap.String("booking_id", b.ID.String()))
		return &PaymentResult{Outcome: payment.OutcomeSucceeded, Booking: settled}, nil
	}

	if !o.gateway.Supports(method) {
		return nil, fieldError("payment_method", fmt.Sprintf("Payment method %q is not supported", method))
	}
	// Settling confirms a booked booking, which needs its voucher redeemed. Refuse before charging.
	if b.Status == entity.BookingStatusBooked {
		if err := o.states.checkVoucherRedeemed(ctx, o.repo, b); err != nil {
			return nil, err
		}
	}

	now := o.cfg.now()
	req := &payment.Request{
		Amount:      b.FinalPrice,
		Currency:    o.cfg.currency,
		Method:      method,
		ReferenceID: fmt.Sprintf("booking_%s_%d", b.ID, now.UnixMilli()),
		BookingCode: b.BookingCode,
		Token:       token,
		SuccessURL:  o.cfg.successURL,
		FailureURL:  o.cfg.failureURL,
	}
	if customer != nil {
		req.CustomerEmail = customer.Email
		req.CustomerName = customer.Name
	}

	res := o.initiate(ctx, req)

	attempt := &entity.PaymentAttempt{
		Base:        entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		BookingID:   b.ID,
		Amount:      b.FinalPrice,
		Method:      method,
		Provider:    o.gateway.Name(),
		ReferenceID: req.ReferenceID,
		Outcome:     entity.PaymentOutcome(res.Outcome),
		ExternalRef: optional(res.ExternalRef),
		RedirectURL: optional(res.RedirectURL),
		FailureCode: optional(res.FailureCode),
	}
	if err := o.repo.Payment.Create(ctx, attempt); err != nil {
		o.log.Error("Failed to record payment attempt",
			zap.Error(err),
			zap.String("booking_id", b.ID.String()),
			zap.String("reference_id", req.ReferenceID),
		)
	}

	switch res.Outcome {
	case payment.OutcomeSucceeded:
		settled, err := o.settle(ctx, b.ID, method)
		if err != nil {
			o.log.Error("Payment succeeded but booking could not be settled",
				zap.Error(err),
				zap.String("booking_id", b.ID.String()),
				zap.String("reference_id", req.ReferenceID),
			)
			return nil, err
		}
		return &PaymentResult{Outcome: res.Outcome, ExternalRef: res.ExternalRef, Booking: settled}, nil

	case payment.OutcomePending:
		if err := o.repo.Booking.SetPaymentMethod(ctx, b.ID, method); err != nil {
			o.log.Warn("Failed to store payment method", zap.Error(err), zap.String("booking_id", b.ID.String()))
		}
		b.PaymentMethod = &method
		o.log.Info("Payment awaiting customer redirect",
			zap.String("booking_id", b.ID.String()),
			zap.String("reference_id", req.ReferenceID),
		)
		return &PaymentResult{Outcome: res.Outcome, ExternalRef: res.ExternalRef, RedirectURL: res.RedirectURL, Booking: b}, nil

	default:
		o.announceFailure(ctx, b.ID, req.ReferenceID, res.FailureCode)
		return nil, &Error{
			Kind:    KindPaymentFailed,
			Message: fmt.Sprintf("payment for booking %s failed, retry or choose pay later", b.BookingCode),
			Details: map[string]string{
				"booking_id":   b.ID.String(),
				"booking_code": b.BookingCode,
				"failure_code": res.FailureCode,
			},
		}
	}
}

// initiate never returns a nil result: provider errors and timeouts become a failed outcome.
func (o *PaymentOrchestrator) initiate(ctx context.Context, req *payment.Request) *payment.Result {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.paymentTimeout)
	defer cancel()

	start := time.Now()
	res, err := o.gateway.InitiatePayment(callCtx, req)
	if err != nil {
		code := "PROVIDER_ERROR"
		if errors.Is(err, context.DeadlineExceeded) {
			code = "TIMEOUT"
		}
		o.log.Error("Payment provider call failed",
			zap.Error(err),
			zap.String("reference_id", req.ReferenceID),
			zap.String("failure_code", code),
		)
		res = &payment.Result{Outcome: payment.OutcomeFailed, FailureCode: code}
	}
	metrics.ObservePayment(o.gateway.Name(), string(res.Outcome), time.Since(start).Seconds())
	return res
}

// settle marks the booking paid and confirms it if it is still booked, in one transaction.
// Settling an already paid booking returns it unchanged.
func (o *PaymentOrchestrator) settle(ctx context.Context, id uuid.UUID, method string) (*entity.Booking, error) {
	var (
		settled   *entity.Booking
		confirmed bool
	)

	err := o.repo.WithTx(ctx, func(tx *repository.Repository) error {
		current, err := tx.Booking.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return newError(KindNotFound, "booking %s not found", id)
		}
		if current.PaymentStatus == entity.PaymentStatusPaid {
			settled = current
			return nil
		}
		if !current.Status.IsActive() {
			return newError(KindInvalidTransition, "booking %s is %s, payment not applied", current.BookingCode, current.Status)
		}

		ok, err := tx.Booking.MarkPaid(ctx, id, method)
		if err != nil {
			return err
		}
		if !ok {
			settled, err = tx.Booking.FindByID(ctx, id)
			return err
		}

		if current.Status == entity.BookingStatusBooked {
			settled, err = o.states.transition(ctx, tx, id, entity.BookingStatusConfirmed)
			confirmed = err == nil
			return err
		}

		current.PaymentStatus = entity.PaymentStatusPaid
		current.PaymentMethod = &method
		settled = current
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("settle booking %s: %w", id, err)
	}

	if confirmed {
		o.states.Announce(ctx, settled)
	}
	return settled, nil
}

// Reconcile applies a provider notification. Replays of the same notification change nothing.
func (o *PaymentOrchestrator) Reconcile(ctx context.Context, n *payment.Notification) (*entity.Booking, error) {
	attempt, err := o.repo.Payment.FindByReference(ctx, n.Reference)
	if err != nil {
		return nil, fmt.Errorf("reconcile payment %s: %w", n.Reference, err)
	}
	if attempt == nil {
		return nil, newError(KindNotFound, "payment %s not found", n.Reference)
	}

	outcome := entity.PaymentOutcome(n.Outcome)
	if attempt.Outcome != outcome {
		if err := o.repo.Payment.UpdateOutcome(ctx, attempt.ID, outcome, optional(n.FailureCode)); err != nil {
			return nil, fmt.Errorf("reconcile payment %s: %w", n.Reference, err)
		}
	}

	switch n.Outcome {
	case payment.OutcomeSucceeded:
		settled, err := o.settle(ctx, attempt.BookingID, attempt.Method)
		if KindOf(err) == KindInvalidTransition {
			o.log.Warn("Payment confirmed for a booking that is no longer active",
				zap.String("booking_id", attempt.BookingID.String()),
				zap.String("reference", n.Reference),
			)
			return o.repo.Booking.FindByID(ctx, attempt.BookingID)
		}
		if err != nil {
			return nil, err
		}
		o.log.Info("Payment reconciled",
			zap.String("booking_id", attempt.BookingID.String()),
			zap.String("reference", n.Reference),
		)
		return settled, nil

	case payment.OutcomeFailed:
		if attempt.Outcome != outcome {
			o.announceFailure(ctx, attempt.BookingID, attempt.ReferenceID, n.FailureCode)
		}
	}

	b, err := o.repo.Booking.FindByID(ctx, attempt.BookingID)
	if err != nil {
		return nil, fmt.Errorf("reconcile payment %s: %w", n.Reference, err)
	}
	return b, nil
}

func (o *PaymentOrchestrator) announceFailure(ctx context.Context, bookingID uuid.UUID, reference, code string) {
	o.log.Warn("Payment failed",
		zap.String("booking_id", bookingID.String()),
		zap.String("reference_id", reference),
		zap.String("failure_code", code),
	)

	if err := o.publisher.PublishJSON(ctx, mq.KeyPaymentFailed, mq.PaymentFailedEvent{
		BookingID:   bookingID.String(),
		Provider:    o.gateway.Name(),
		ReferenceID: reference,
		FailureCode: code,
		OccurredAt:  o.cfg.now(),
	}); err != nil {
		o.log.Warn("Failed to publish payment event", zap.Error(err), zap.String("booking_id", bookingID.String()))
	}
}

func (o *PaymentOrchestrator) ParseWebhook(header http.Header, body []byte) (*payment.Notification, error) {
	return o.gateway.ParseWebhook(header, body)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
