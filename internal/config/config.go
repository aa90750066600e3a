package config // package config loads application configuration from environment variables

import (
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-reservation/internal/logger"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	StoreDriver   string        // "mysql" or "memory"
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	DBMigrate     bool          // apply embedded migrations at startup
	JWTSecret     string        // secret used to verify admin JWTs
	AccessTTLMin  int           // lifetime of tokens minted by cmd/admintoken
	RabbitURL     string        // AMQP URL; empty disables publishing and the consumer
	DemoSeed      bool          // seed a demo event on startup
	EventCacheTTL time.Duration // Redis TTL for event lookups

	Reservation ReservationConfig
	Payment     PaymentConfig
}

// ReservationConfig controls hold lifetimes and the expiry sweeper.
type ReservationConfig struct {
	HoldDefault   time.Duration // hold length when the client sends none
	HoldMax       time.Duration // upper bound on client supplied hold length
	SweepInterval time.Duration // period of the expiry sweeper
	SweepBatch    int           // reservations handled per sweep and pass
	SweepLockTTL  time.Duration // lifetime of the Redis sweeper lock
}

// PaymentConfig selects and configures the payment gateway.
type PaymentConfig struct {
	Gateway             string // "sandbox" or "stripe"
	Currency            string // ISO currency code, lower case
	StripeSecretKey     string
	StripeWebhookSecret string
	SuccessURL          string // where the gateway sends the customer after paying
	CancelURL           string // where the gateway sends the customer after aborting
	ReturnURL           string // optional front-end page the return handler redirects to
	SandboxBaseURL      string // base of the payment page URLs the sandbox hands out
	SandboxFail         bool   // make the sandbox gateway reject every intent
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Database variables
// are only required for the mysql driver.
func Load() Config {
	cfg := Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          envStr("APP_PORT", "8080"),
		StoreDriver:   envStr("STORE_DRIVER", "mysql"),
		JWTSecret:     must("JWT_SECRET"),
		AccessTTLMin:  envInt("ACCESS_TOKEN_TTL_MIN", 60),
		RabbitURL:     envStr("RABBITMQ_URL", envStr("AMQP_URL", "")),
		DemoSeed:      envBool("DEMO_SEED", false),
		EventCacheTTL: envDur("EVENT_CACHE_TTL", time.Minute),
		Reservation: ReservationConfig{
			HoldDefault:   envDur("HOLD_DEFAULT_DURATION", 10*time.Minute),
			HoldMax:       envDur("HOLD_MAX_DURATION", 30*time.Minute),
			SweepInterval: envDur("SWEEP_INTERVAL", 30*time.Second),
			SweepBatch:    envInt("SWEEP_BATCH", 200),
			SweepLockTTL:  envDur("SWEEP_LOCK_TTL", 25*time.Second),
		},
		Payment: PaymentConfig{
			Gateway:             envStr("PAYMENT_GATEWAY", "sandbox"),
			Currency:            envStr("PAYMENT_CURRENCY", "usd"),
			StripeSecretKey:     envStr("STRIPE_SECRET_KEY", ""),
			StripeWebhookSecret: envStr("STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:          envStr("PAYMENT_SUCCESS_URL", "http://localhost:8080/v1/payments/return?status=success"),
			CancelURL:           envStr("PAYMENT_CANCEL_URL", "http://localhost:8080/v1/payments/return?status=failed"),
			ReturnURL:           envStr("PAYMENT_RETURN_URL", ""),
			SandboxBaseURL:      envStr("SANDBOX_BASE_URL", "http://localhost:8080/sandbox/pay"),
			SandboxFail:         envBool("SANDBOX_FAIL", false),
		},
	}
	if cfg.StoreDriver == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = envStr("DB_PASS", "")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
		cfg.DBMigrate = envBool("DB_MIGRATE", true)
	}
	if cfg.Payment.Gateway == "stripe" {
		cfg.Payment.StripeSecretKey = must("STRIPE_SECRET_KEY")
		cfg.Payment.StripeWebhookSecret = must("STRIPE_WEBHOOK_SECRET")
	}
	if cfg.Reservation.HoldMax < cfg.Reservation.HoldDefault {
		cfg.Reservation.HoldMax = cfg.Reservation.HoldDefault
	}
	if cfg.Reservation.SweepInterval <= 0 {
		cfg.Reservation.SweepInterval = 30 * time.Second
	}
	if cfg.Reservation.SweepBatch < 1 {
		cfg.Reservation.SweepBatch = 1
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v := envStr(key, "")
	if v == "" {
		logger.Fatal("missing required env var", zap.String("key", key))
	}
	return v
}
