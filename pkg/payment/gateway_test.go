package payment

import (
	"testing"

	"barber-booking/pkg/utils"
)

func TestNewGateway(t *testing.T) {
	tests := []struct {
		name       string
		config     utils.PaymentConfig
		wantName   string
		wantSigned bool
		wantErr    bool
	}{
		{name: "default sandbox", config: utils.PaymentConfig{}, wantName: "sandbox"},
		{
			name:     "xendit",
			config:   utils.PaymentConfig{Provider: "xendit", XenditSecretKey: "xnd_test", WebhookTokenHash: "$2a$04$hash"},
			wantName: "xendit",
		},
		{
			name:    "xendit without callback token",
			config:  utils.PaymentConfig{Provider: "xendit", XenditSecretKey: "xnd_test"},
			wantErr: true,
		},
		{
			name:    "xendit without secret key",
			config:  utils.PaymentConfig{Provider: "xendit", WebhookTokenHash: "$2a$04$hash"},
			wantErr: true,
		},
		{
			name:       "stripe",
			config:     utils.PaymentConfig{Provider: "Stripe", StripeSecretKey: "sk_test", StripeWebhookSecret: "whsec_test"},
			wantName:   "stripe",
			wantSigned: true,
		},
		{
			name:    "stripe without webhook secret",
			config:  utils.PaymentConfig{Provider: "stripe", StripeSecretKey: "sk_test"},
			wantErr: true,
		},
		{name: "unknown", config: utils.PaymentConfig{Provider: "paypal"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGateway(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewGateway() = %s, want error", g.Name())
				}
				return
			}
			if err != nil {
				t.Fatalf("NewGateway() error = %v", err)
			}
			if g.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", g.Name(), tt.wantName)
			}
			if got := VerifiesWebhooks(g); got != tt.wantSigned {
				t.Errorf("VerifiesWebhooks() = %v, want %v", got, tt.wantSigned)
			}
		})
	}
}
