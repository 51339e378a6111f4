// Package payment talks to external payment providers. Each Gateway turns one
// request into exactly one provider call; retries are the caller's decision.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"barber-booking/pkg/utils"
)

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomePending means the customer must follow RedirectURL to finish paying.
	OutcomePending Outcome = "pending"
	OutcomeFailed  Outcome = "failed"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrInvalidWebhook    = errors.New("invalid payment webhook")
)

type Request struct {
	Amount        float64
	Currency      string
	Method        string
	ReferenceID   string
	BookingCode   string
	CustomerEmail string
	CustomerName  string
	// Token is a provider-side payment method handle, e.g. a Stripe pm_ id. Optional for e-wallets.
	Token      string
	SuccessURL string
	FailureURL string
}

type Result struct {
	Outcome     Outcome
	ExternalRef string
	RedirectURL string
	FailureCode string
}

// Notification is an out-of-band status update received on the webhook.
type Notification struct {
	// Reference is our reference id or the provider's external reference.
	Reference   string
	Outcome     Outcome
	FailureCode string
}

type Gateway interface {
	Name() string
	Supports(method string) bool
	InitiatePayment(ctx context.Context, req *Request) (*Result, error)
	ParseWebhook(header http.Header, body []byte) (*Notification, error)
}

// SignedWebhooks is implemented by gateways that authenticate callbacks themselves.
type SignedWebhooks interface {
	VerifiesSignature() bool
}

// VerifiesWebhooks reports whether g checks callback authenticity without a shared token.
func VerifiesWebhooks(g Gateway) bool {
	s, ok := g.(SignedWebhooks)
	return ok && s.VerifiesSignature()
}

// NewGateway builds the configured provider. Real providers refuse to start
// without a way to authenticate their callbacks.
func NewGateway(config utils.PaymentConfig) (Gateway, error) {
	switch strings.ToLower(config.Provider) {
	case "xendit":
		if config.XenditSecretKey == "" {
			return nil, fmt.Errorf("xendit: secret key is required")
		}
		if config.WebhookTokenHash == "" {
			return nil, fmt.Errorf("xendit: webhook token hash is required")
		}
		return NewXenditGateway(config.XenditBaseURL, config.XenditSecretKey, nil), nil
	case "stripe":
		if config.StripeSecretKey == "" {
			return nil, fmt.Errorf("stripe: secret key is required")
		}
		if config.StripeWebhookSecret == "" {
			return nil, fmt.Errorf("stripe: webhook secret is required")
		}
		return NewStripeGateway(config.StripeSecretKey, config.StripeWebhookSecret), nil
	case "sandbox", "":
		return NewSandboxGateway(), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", config.Provider)
	}
}

// minorUnits converts an amount in pesos to centavos.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
