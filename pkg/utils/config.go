package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Payment   PaymentConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name     string
	Port     string
	Debug    bool
	LogPath  string
	Timezone string
	// Store selects the repository backend: "postgres" or "memory".
	Store string
	// CORSOrigins lists browser origins allowed to call the API. Empty allows any.
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type PaymentConfig struct {
	// Provider is one of "xendit", "stripe" or "sandbox".
	Provider        string
	Currency        string
	Timeout         time.Duration
	XenditSecretKey string
	XenditBaseURL   string
	StripeSecretKey string
	// StripeWebhookSecret verifies Stripe-Signature on webhooks.
	StripeWebhookSecret string
	SuccessURL          string
	FailureURL          string
	// WebhookTokenHash is a bcrypt hash of the callback token providers send.
	WebhookTokenHash string
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
}

// Location resolves the shop timezone, falling back to UTC+8.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("PHT", 8*60*60)
	}
	return loc
}

func LoadConfig() (*Config, error) {
	return loadConfig(viper.GetViper(), ".env")
}

func loadConfig(v *viper.Viper, file string) (*Config, error) {
	v.SetConfigFile(file)
	v.SetConfigType("env")

	v.SetDefault("APP_NAME", "barber-booking")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("APP_TIMEZONE", "Asia/Manila")
	v.SetDefault("STORE", "postgres")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_SESSION_TTL", "10m")
	v.SetDefault("RABBITMQ_EXCHANGE", "barber.events")
	v.SetDefault("PAYMENT_PROVIDER", "sandbox")
	v.SetDefault("PAYMENT_CURRENCY", "PHP")
	v.SetDefault("PAYMENT_TIMEOUT", "15s")
	v.SetDefault("XENDIT_BASE_URL", "https://api.xendit.co")
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPM", 60)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	// A missing .env is fine; the environment alone can configure the service.
	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Port:        v.GetString("PORT"),
			Debug:       v.GetBool("DEBUG"),
			LogPath:     v.GetString("LOG_PATH"),
			Timezone:    v.GetString("APP_TIMEZONE"),
			Store:       v.GetString("STORE"),
			CORSOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:       v.GetString("REDIS_ADDR"),
			Password:   v.GetString("REDIS_PASSWORD"),
			DB:         v.GetInt("REDIS_DB"),
			SessionTTL: v.GetDuration("REDIS_SESSION_TTL"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("RABBITMQ_EXCHANGE"),
		},
		Payment: PaymentConfig{
			Provider:            v.GetString("PAYMENT_PROVIDER"),
			Currency:            v.GetString("PAYMENT_CURRENCY"),
			Timeout:             v.GetDuration("PAYMENT_TIMEOUT"),
			XenditSecretKey:     v.GetString("XENDIT_SECRET_KEY"),
			XenditBaseURL:       v.GetString("XENDIT_BASE_URL"),
			StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
			SuccessURL:          v.GetString("PAYMENT_SUCCESS_URL"),
			FailureURL:          v.GetString("PAYMENT_FAILURE_URL"),
			WebhookTokenHash:    v.GetString("PAYMENT_WEBHOOK_TOKEN_HASH"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           v.GetBool("RATE_LIMIT_ENABLED"),
			RequestsPerMinute: v.GetInt("RATE_LIMIT_RPM"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	return config, nil
}

// splitList reads a comma or space separated env value.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
}
