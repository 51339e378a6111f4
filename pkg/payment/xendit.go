package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	xendit "github.com/xendit/xendit-go/v6"
	"github.com/xendit/xendit-go/v6/common"
	payment_request "github.com/xendit/xendit-go/v6/payment_request"
)

var xenditChannels = map[string]string{
	"gcash": "GCASH",
	"maya":  "PAYMAYA",
}

// XenditGateway creates e-wallet Payment Requests through the Xendit SDK.
type XenditGateway struct {
	client *xendit.APIClient
}

// NewXenditGateway points the SDK at baseURL. A nil client gets a 30s timeout.
func NewXenditGateway(baseURL, secretKey string, client *http.Client) *XenditGateway {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	api := xendit.NewClient(secretKey)
	cfg := api.GetConfig()
	cfg.HTTPClient = client
	if baseURL != "" {
		cfg.Servers = common.ServerConfigurations{{URL: strings.TrimRight(baseURL, "/")}}
	}
	return &XenditGateway{client: api}
}

func (g *XenditGateway) Name() string { return "xendit" }

func (g *XenditGateway) Supports(method string) bool {
	_, ok := xenditChannels[strings.ToLower(method)]
	return ok
}

func (g *XenditGateway) InitiatePayment(ctx context.Context, req *Request) (*Result, error) {
	channel, ok := xenditChannels[strings.ToLower(req.Method)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.Method)
	}

	props := payment_request.EWalletChannelProperties{}
	if req.SuccessURL != "" {
		props.SetSuccessReturnUrl(req.SuccessURL)
	}
	if req.FailureURL != "" {
		props.SetFailureReturnUrl(req.FailureURL)
	}
	ewallet := payment_request.EWalletParameters{}
	ewallet.SetChannelCode(payment_request.EWalletChannelCode(channel))
	ewallet.SetChannelProperties(props)

	method := payment_request.PaymentMethodParameters{}
	method.SetType(payment_request.PaymentMethodType("EWALLET"))
	method.SetReusability(payment_request.PaymentMethodReusability("ONE_TIME_USE"))
	method.SetEwallet(ewallet)

	params := payment_request.NewPaymentRequestParameters(payment_request.PaymentRequestCurrency(req.Currency))
	params.SetReferenceId(req.ReferenceID)
	params.SetAmount(req.Amount)
	params.SetDescription(fmt.Sprintf("Booking payment #%s", req.BookingCode))
	params.SetPaymentMethod(method)
	params.SetMetadata(map[string]interface{}{
		"booking_code":   req.BookingCode,
		"customer_email": req.CustomerEmail,
		"customer_name":  req.CustomerName,
		"payment_method": strings.ToLower(req.Method),
	})

	pr, resp, sdkErr := g.client.PaymentRequestApi.CreatePaymentRequest(ctx).
		IdempotencyKey(req.ReferenceID).
		PaymentRequestParameters(*params).
		Execute()
	if sdkErr != nil {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("xendit: send request: %w", err)
		}
		return xenditFailure(resp, sdkErr)
	}

	result := &Result{
		Outcome:     xenditOutcome(string(pr.GetStatus())),
		ExternalRef: pr.GetId(),
		FailureCode: pr.GetFailureCode(),
	}
	for _, a := range pr.GetActions() {
		if strings.EqualFold(string(a.GetAction()), "AUTH") && a.GetUrl() != "" {
			result.RedirectURL = a.GetUrl()
			break
		}
	}
	if result.Outcome == OutcomePending && result.RedirectURL == "" {
		// A pending request with nowhere to send the customer cannot complete.
		result.Outcome = OutcomeFailed
		result.FailureCode = "NO_REDIRECT_ACTION"
	}

	return result, nil
}

// xenditFailure turns a rejected call into a failed Result. Transport errors and
// provider outages stay errors so the caller can retry.
func xenditFailure(resp *http.Response, sdkErr *common.XenditSdkError) (*Result, error) {
	if resp == nil {
		return nil, fmt.Errorf("xendit: send request: %s", sdkErr.Error())
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("xendit: provider error %d: %s", resp.StatusCode, sdkErr.ErrorMessage())
	}

	code := sdkErr.ErrorCode()
	if code == "" {
		// The body carried no error_code; name the rejection by its HTTP status.
		code = fmt.Sprintf("HTTP_%d", resp.StatusCode)
	}
	return &Result{Outcome: OutcomeFailed, FailureCode: code}, nil
}

func xenditOutcome(status string) Outcome {
	switch strings.ToUpper(status) {
	case "SUCCEEDED":
		return OutcomeSucceeded
	case "REQUIRES_ACTION", "PENDING", "ACCEPTING_PAYMENTS", "AWAITING_CAPTURE":
		return OutcomePending
	default:
		return OutcomeFailed
	}
}

type xenditWebhook struct {
	Event string `json:"event"`
	Data  struct {
		ID               string `json:"id"`
		PaymentRequestID string `json:"payment_request_id"`
		ReferenceID      string `json:"reference_id"`
		Status           string `json:"status"`
		FailureCode      string `json:"failure_code"`
	} `json:"data"`
}

// ParseWebhook decodes a Payment Request callback. The callback token is checked by middleware.
func (g *XenditGateway) ParseWebhook(_ http.Header, body []byte) (*Notification, error) {
	var wh xenditWebhook
	if err := json.Unmarshal(body, &wh); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	ref := wh.Data.ReferenceID
	if ref == "" {
		ref = wh.Data.PaymentRequestID
	}
	if ref == "" {
		ref = wh.Data.ID
	}
	if ref == "" || wh.Data.Status == "" {
		return nil, fmt.Errorf("%w: missing reference or status", ErrInvalidWebhook)
	}

	return &Notification{
		Reference:   ref,
		Outcome:     xenditOutcome(wh.Data.Status),
		FailureCode: wh.Data.FailureCode,
	}, nil
}
