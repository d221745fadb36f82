// Package config loads application configuration from environment
// variables.  Required variables are enforced at start-up; everything else
// has a working default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/iliyamo/shortlet-booking/internal/logger"
	"github.com/iliyamo/shortlet-booking/internal/refund"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

// Config holds all runtime configuration values.
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	StoreDriver string // "mysql" or "memory"
	DBUser      string
	DBPass      string // optional
	DBHost      string
	DBPort      string
	DBName      string
	JWTSecret   string // verifies staff tokens on the admin API

	RabbitMQURL         string // empty disables event publishing
	StripeWebhookSecret string // empty disables the Stripe webhook
	CORSOrigins         []string
	ExpirySchedule      string // cron spec for the stale pending sweep

	Booking BookingConfig
	Mail    MailConfig
	SMS     SMSConfig
}

// BookingConfig carries the operator-tunable booking rules.
type BookingConfig struct {
	InstantBooking          bool
	CleaningFee             int64
	TaxRate                 float64
	PaymentTolerancePercent int
	MaxStayNights           int
	Timezone                string
	PendingTTL              time.Duration
	FullRefundDays          int
	PartialRefundDays       int
	PartialRefundPercent    int
	NoRefundMessage         string
}

// MailConfig configures SendGrid delivery.  An empty key disables email.
type MailConfig struct {
	SendGridAPIKey    string
	FromEmail         string
	FromName          string
	Sandbox           bool   // SendGrid sandbox mode; accepted but not delivered
	Currency          string // ISO code used when rendering amounts
	HousekeepingEmail string // receives checkout cleaning tasks
}

// SMSConfig configures Twilio delivery.  An empty SID disables SMS.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

// Load reads the configuration and exits the process when a required
// variable is missing or a value is invalid.
func Load() Config {
	cfg, err := Parse()
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid configuration")
	}
	return cfg
}

// Parse reads the configuration from the environment.
func Parse() (Config, error) {
	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
		return strings.TrimSpace(v)
	}

	cfg := Config{
		Env:         envStr("APP_ENV", "dev"),
		Port:        must("APP_PORT"),
		StoreDriver: strings.ToLower(envStr("STORE_DRIVER", "mysql")),
		DBPass:      os.Getenv("DB_PASS"),
		JWTSecret:   must("JWT_SECRET"),

		RabbitMQURL:         os.Getenv("RABBITMQ_URL"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		CORSOrigins:         envList("CORS_ORIGINS", []string{"*"}),
		ExpirySchedule:      envStr("PENDING_EXPIRY_SCHEDULE", "@every 15m"),

		Booking: BookingConfig{
			InstantBooking:          envBool("INSTANT_BOOKING", false),
			CleaningFee:             envInt64("CLEANING_FEE", 0),
			TaxRate:                 envFloat("TAX_RATE", 0),
			PaymentTolerancePercent: envInt("PAYMENT_TOLERANCE_PERCENT", 0),
			MaxStayNights:           envInt("MAX_STAY_NIGHTS", 365),
			Timezone:                envStr("PROPERTY_TIMEZONE", "UTC"),
			PendingTTL:              envDur("PENDING_BOOKING_TTL", 24*time.Hour),
			FullRefundDays:          envInt("REFUND_FULL_DAYS", 7),
			PartialRefundDays:       envInt("REFUND_PARTIAL_DAYS", 3),
			PartialRefundPercent:    envInt("REFUND_PARTIAL_PERCENT", 50),
			NoRefundMessage:         envStr("REFUND_NONE_MESSAGE", "This booking is no longer eligible for a refund."),
		},
		Mail: mailConfig(),
		SMS:  smsConfig(),
	}

	switch cfg.StoreDriver {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case "memory":
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER must be mysql or memory, got %q", cfg.StoreDriver)
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("invalid APP_PORT %q", cfg.Port)
	}
	if err := cfg.Booking.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WorkerConfig is the subset of settings the notification worker needs.
type WorkerConfig struct {
	RabbitMQURL string
	Mail        MailConfig
	SMS         SMSConfig
}

// LoadWorker reads the worker configuration and exits the process when
// RABBITMQ_URL is missing.
func LoadWorker() WorkerConfig {
	cfg, err := ParseWorker()
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid configuration")
	}
	return cfg
}

// ParseWorker reads the worker configuration.  The API's port, secret and
// database settings are not consulted.
func ParseWorker() (WorkerConfig, error) {
	url := strings.TrimSpace(os.Getenv("RABBITMQ_URL"))
	if url == "" {
		return WorkerConfig{}, fmt.Errorf("missing required env vars: RABBITMQ_URL")
	}
	return WorkerConfig{RabbitMQURL: url, Mail: mailConfig(), SMS: smsConfig()}, nil
}

func mailConfig() MailConfig {
	return MailConfig{
		SendGridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		FromEmail:         envStr("MAIL_FROM_EMAIL", "bookings@example.com"),
		FromName:          envStr("MAIL_FROM_NAME", "Reservations"),
		Sandbox:           envBool("SENDGRID_SANDBOX", false),
		Currency:          envStr("CURRENCY", "NGN"),
		HousekeepingEmail: os.Getenv("HOUSEKEEPING_EMAIL"),
	}
}

func smsConfig() SMSConfig {
	return SMSConfig{
		AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		From:       os.Getenv("TWILIO_FROM_NUMBER"),
	}
}

func (b BookingConfig) validate() error {
	if b.CleaningFee < 0 {
		return fmt.Errorf("CLEANING_FEE must not be negative")
	}
	if b.TaxRate < 0 || b.TaxRate > 1 {
		return fmt.Errorf("TAX_RATE must be a fraction between 0 and 1")
	}
	if b.PaymentTolerancePercent < 0 {
		return fmt.Errorf("PAYMENT_TOLERANCE_PERCENT must not be negative")
	}
	if b.MaxStayNights < 1 || b.MaxStayNights > 3650 {
		return fmt.Errorf("MAX_STAY_NIGHTS must be between 1 and 3650")
	}
	if _, err := time.LoadLocation(b.Timezone); err != nil {
		return fmt.Errorf("PROPERTY_TIMEZONE: %w", err)
	}
	return b.RefundPolicy().Validate()
}

// RefundPolicy returns the cancellation policy.
func (b BookingConfig) RefundPolicy() refund.Policy {
	return refund.Policy{
		FullRefundDays:       b.FullRefundDays,
		PartialRefundDays:    b.PartialRefundDays,
		PartialRefundPercent: b.PartialRefundPercent,
		NoRefundMessage:      b.NoRefundMessage,
	}
}

// Settings converts the booking rules for the reservation service.  The
// timezone has been validated by Parse.
func (b BookingConfig) Settings() reservation.Settings {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return reservation.Settings{
		InstantBooking:          b.InstantBooking,
		CleaningFee:             b.CleaningFee,
		TaxRate:                 b.TaxRate,
		PaymentTolerancePercent: b.PaymentTolerancePercent,
		MaxStayNights:           b.MaxStayNights,
		Location:                loc,
		Refund:                  b.RefundPolicy(),
	}
}
