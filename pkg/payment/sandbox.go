package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// SandboxGateway resolves payments locally for development:
// "sandbox_fail" fails, "sandbox_redirect" asks for a redirect, anything else succeeds.
type SandboxGateway struct{}

func NewSandboxGateway() *SandboxGateway { return &SandboxGateway{} }

func (g *SandboxGateway) Name() string { return "sandbox" }

func (g *SandboxGateway) Supports(method string) bool { return method != "" }

func (g *SandboxGateway) InitiatePayment(ctx context.Context, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref := "sbx_" + req.ReferenceID
	switch strings.ToLower(req.Method) {
	case "sandbox_fail":
		return &Result{Outcome: OutcomeFailed, ExternalRef: ref, FailureCode: "SANDBOX_DECLINED"}, nil
	case "sandbox_redirect":
		return &Result{
			Outcome:     OutcomePending,
			ExternalRef: ref,
			RedirectURL: fmt.Sprintf("https://sandbox.invalid/pay/%s", req.ReferenceID),
		}, nil
	default:
		return &Result{Outcome: OutcomeSucceeded, ExternalRef: ref}, nil
	}
}

type sandboxWebhook struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	FailureCode string `json:"failure_code"`
}

func (g *SandboxGateway) ParseWebhook(_ http.Header, body []byte) (*Notification, error) {
	var wh sandboxWebhook
	if err := json.Unmarshal(body, &wh); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	if wh.Reference == "" {
		return nil, fmt.Errorf("%w: missing reference", ErrInvalidWebhook)
	}

	var outcome Outcome
	switch strings.ToLower(wh.Status) {
	case string(OutcomeSucceeded):
		outcome = OutcomeSucceeded
	case string(OutcomePending):
		outcome = OutcomePending
	default:
		outcome = OutcomeFailed
	}
	return &Notification{Reference: wh.Reference, Outcome: outcome, FailureCode: wh.FailureCode}, nil
}
