package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway confirms card PaymentIntents. 3-D Secure challenges come back as a redirect.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) Supports(method string) bool {
	return strings.EqualFold(method, "card")
}

func (g *StripeGateway) InitiatePayment(ctx context.Context, req *Request) (*Result, error) {
	if !g.Supports(req.Method) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.Method)
	}
	if req.Token == "" {
		return &Result{Outcome: OutcomeFailed, FailureCode: "missing_payment_method"}, nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(minorUnits(req.Amount)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(req.Token),
		Confirm:       stripe.Bool(true),
		ReturnURL:     stripe.String(req.SuccessURL),
		Description:   stripe.String(fmt.Sprintf("Booking payment #%s", req.BookingCode)),
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.ReferenceID)
	params.AddMetadata("reference_id", req.ReferenceID)
	params.AddMetadata("booking_code", req.BookingCode)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			return &Result{Outcome: OutcomeFailed, FailureCode: string(stripeErr.Code)}, nil
		}
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	return stripeResult(pi), nil
}

func stripeResult(pi *stripe.PaymentIntent) *Result {
	result := &Result{ExternalRef: pi.ID}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		result.Outcome = OutcomeSucceeded
	case stripe.PaymentIntentStatusRequiresAction:
		if pi.NextAction != nil && pi.NextAction.RedirectToURL != nil && pi.NextAction.RedirectToURL.URL != "" {
			result.Outcome = OutcomePending
			result.RedirectURL = pi.NextAction.RedirectToURL.URL
		} else {
			result.Outcome = OutcomeFailed
			result.FailureCode = "unsupported_next_action"
		}
	default:
		result.Outcome = OutcomeFailed
		result.FailureCode = string(pi.Status)
		if pi.LastPaymentError != nil && pi.LastPaymentError.Code != "" {
			result.FailureCode = string(pi.LastPaymentError.Code)
		}
	}

	return result
}

func (g *StripeGateway) VerifiesSignature() bool { return g.webhookSecret != "" }

// ParseWebhook verifies Stripe-Signature and maps payment_intent events.
func (g *StripeGateway) ParseWebhook(header http.Header, body []byte) (*Notification, error) {
	event, err := webhook.ConstructEvent(body, header.Get("Stripe-Signature"), g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	var outcome Outcome
	switch event.Type {
	case "payment_intent.succeeded":
		outcome = OutcomeSucceeded
	case "payment_intent.payment_failed", "payment_intent.canceled":
		outcome = OutcomeFailed
	default:
		return nil, fmt.Errorf("%w: unhandled event %s", ErrInvalidWebhook, event.Type)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	n := &Notification{Reference: pi.ID, Outcome: outcome}
	if pi.LastPaymentError != nil {
		n.FailureCode = string(pi.LastPaymentError.Code)
	}
	return n, nil
}
