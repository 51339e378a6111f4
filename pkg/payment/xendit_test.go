package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newXenditTestServer(t *testing.T, status int, body string, check func(r *http.Request, payload map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/payment_requests") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if check != nil {
			check(r, payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

// paymentRequestBody renders a Payment Request as the API returns it.
func paymentRequestBody(id, status, failureCode, actions string) string {
	failure := "null"
	if failureCode != "" {
		failure = fmt.Sprintf("%q", failureCode)
	}
	if actions == "" {
		actions = "[]"
	}
	return fmt.Sprintf(`{
		"id": %q,
		"business_id": "biz-1",
		"reference_id": "booking_abc_1",
		"currency": "PHP",
		"amount": 450,
		"country": "PH",
		"description": "Booking payment #K3JD82QZ",
		"capture_method": "AUTOMATIC",
		"status": %q,
		"failure_code": %s,
		"actions": %s,
		"metadata": {"booking_code": "K3JD82QZ"},
		"payment_method": {
			"id": "pm-1",
			"type": "EWALLET",
			"reusability": "ONE_TIME_USE",
			"status": "ACTIVE",
			"reference_id": "pm-ref-1",
			"created": "2026-05-04T01:00:00Z",
			"updated": "2026-05-04T01:00:00Z",
			"ewallet": {
				"channel_code": "GCASH",
				"channel_properties": {
					"success_return_url": "https://shop.example/success",
					"failure_return_url": "https://shop.example/failure"
				}
			}
		},
		"created": "2026-05-04T01:00:00Z",
		"updated": "2026-05-04T01:00:00Z"
	}`, id, status, failure, actions)
}

func testRequest() *Request {
	return &Request{
		Amount:        450,
		Currency:      "PHP",
		Method:        "gcash",
		ReferenceID:   "booking_abc_1",
		BookingCode:   "K3JD82QZ",
		CustomerEmail: "rey@example.com",
		CustomerName:  "Rey",
		SuccessURL:    "https://shop.example/success",
		FailureURL:    "https://shop.example/failure",
	}
}

func TestXenditInitiatePaymentRedirect(t *testing.T) {
	actions := `[
		{"action": "PRESENT_TO_CUSTOMER", "url_type": "WEB", "url": null, "method": null, "qr_code": "qr"},
		{"action": "AUTH", "url_type": "WEB", "url": "https://pay.example/r/123", "method": "GET", "qr_code": null}
	]`
	srv := newXenditTestServer(t, http.StatusCreated, paymentRequestBody("pr-123", "REQUIRES_ACTION", "", actions), func(r *http.Request, p map[string]any) {
		if r.Header.Get("Authorization") == "" {
			t.Error("request carries no credentials")
		}
		if r.Header.Get("Idempotency-Key") != "booking_abc_1" {
			t.Errorf("idempotency key = %q", r.Header.Get("Idempotency-Key"))
		}
		if p["reference_id"] != "booking_abc_1" || p["amount"] != 450.0 || p["currency"] != "PHP" {
			t.Errorf("payload = %v", p)
		}
		method, _ := p["payment_method"].(map[string]any)
		ewallet, _ := method["ewallet"].(map[string]any)
		if method["type"] != "EWALLET" || ewallet["channel_code"] != "GCASH" {
			t.Errorf("payment_method = %v", method)
		}
		props, _ := ewallet["channel_properties"].(map[string]any)
		if props["success_return_url"] != "https://shop.example/success" {
			t.Errorf("channel_properties = %v", props)
		}
	})
	defer srv.Close()

	g := NewXenditGateway(srv.URL, "xnd_test", srv.Client())
	res, err := g.InitiatePayment(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("InitiatePayment() error = %v", err)
	}

	if res.Outcome != OutcomePending || res.RedirectURL != "https://pay.example/r/123" || res.ExternalRef != "pr-123" {
		t.Errorf("result = %+v", res)
	}
}

func TestXenditInitiatePaymentOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantOutcome Outcome
		wantCode    string
		wantErr     bool
	}{
		{
			name:        "succeeded",
			status:      http.StatusOK,
			body:        paymentRequestBody("pr-1", "SUCCEEDED", "", ""),
			wantOutcome: OutcomeSucceeded,
		},
		{
			name:        "failed status",
			status:      http.StatusOK,
			body:        paymentRequestBody("pr-2", "FAILED", "INSUFFICIENT_BALANCE", ""),
			wantOutcome: OutcomeFailed,
			wantCode:    "INSUFFICIENT_BALANCE",
		},
		{
			name:        "pending without redirect",
			status:      http.StatusOK,
			body:        paymentRequestBody("pr-3", "REQUIRES_ACTION", "", ""),
			wantOutcome: OutcomeFailed,
			wantCode:    "NO_REDIRECT_ACTION",
		},
		{
			name:        "rejected by provider",
			status:      http.StatusBadRequest,
			body:        `{"error_code":"API_VALIDATION_ERROR","message":"bad amount"}`,
			wantOutcome: OutcomeFailed,
			wantCode:    "API_VALIDATION_ERROR",
		},
		{
			name:        "rejected without error body",
			status:      http.StatusForbidden,
			body:        `not json`,
			wantOutcome: OutcomeFailed,
			wantCode:    "HTTP_403",
		},
		{
			name:    "provider down",
			status:  http.StatusBadGateway,
			body:    `oops`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newXenditTestServer(t, tt.status, tt.body, nil)
			defer srv.Close()

			res, err := NewXenditGateway(srv.URL, "xnd_test", srv.Client()).InitiatePayment(context.Background(), testRequest())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", res)
				}
				return
			}
			if err != nil {
				t.Fatalf("InitiatePayment() error = %v", err)
			}
			if res.Outcome != tt.wantOutcome || res.FailureCode != tt.wantCode {
				t.Errorf("result = %+v, want %s/%s", res, tt.wantOutcome, tt.wantCode)
			}
		})
	}
}

func TestXenditUnsupportedMethod(t *testing.T) {
	g := NewXenditGateway("http://unused", "xnd_test", nil)
	req := testRequest()
	req.Method = "card"

	if g.Supports("card") {
		t.Error("Supports(card) = true")
	}
	if _, err := g.InitiatePayment(context.Background(), req); !errors.Is(err, ErrUnsupportedMethod) {
		t.Errorf("error = %v, want ErrUnsupportedMethod", err)
	}
}

func TestXenditRespectsContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewXenditGateway(srv.URL, "xnd_test", srv.Client()).InitiatePayment(ctx, testRequest())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}

func TestXenditParseWebhook(t *testing.T) {
	g := NewXenditGateway("http://unused", "xnd_test", nil)

	n, err := g.ParseWebhook(nil, []byte(`{"event":"payment.succeeded","data":{"id":"pr-9","reference_id":"booking_x_1","status":"SUCCEEDED"}}`))
	if err != nil {
		t.Fatalf("ParseWebhook() error = %v", err)
	}
	if n.Reference != "booking_x_1" || n.Outcome != OutcomeSucceeded {
		t.Errorf("notification = %+v", n)
	}

	n, err = g.ParseWebhook(nil, []byte(`{"event":"payment.failed","data":{"id":"pr-9","status":"FAILED","failure_code":"EXPIRED"}}`))
	if err != nil {
		t.Fatalf("ParseWebhook() error = %v", err)
	}
	if n.Reference != "pr-9" || n.Outcome != OutcomeFailed || n.FailureCode != "EXPIRED" {
		t.Errorf("notification = %+v", n)
	}

	if _, err := g.ParseWebhook(nil, []byte(`{"data":{}}`)); !errors.Is(err, ErrInvalidWebhook) {
		t.Errorf("error = %v, want ErrInvalidWebhook", err)
	}
}
