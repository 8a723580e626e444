package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	PaymentModeGateway   = "gateway"
	PaymentModeSimulated = "simulated"
)

type Config struct {
	Env         string
	HTTPPort    string
	DatabaseURL string
	Migrate     bool

	// SessionSecret signs admin access and refresh tokens.
	SessionSecret string
	JWTIssuer     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	MerchantKey  string
	MerchantSalt string
	PaymentMode  string
	GatewayURL   string
	// PublicBaseURL is where the gateway posts success/failure callbacks.
	PublicBaseURL string
	// FrontendURL hosts the thank-you and failure views.
	FrontendURL string

	SimulatedConfirmDelay time.Duration

	RedisURL string
	CacheTTL time.Duration

	RateRPS     int
	WorkerCount int

	AdminEmail    string
	AdminPassword string
}

func (c Config) Simulated() bool { return c.PaymentMode == PaymentModeSimulated }

// Load reads the environment. In dev/local a .env file is loaded first if present.
// Missing required keys are reported together.
func Load() (Config, error) {
	env := get("APP_ENV", "dev")
	if env == "dev" || env == "local" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("load .env", "err", err)
		}
	}

	cfg := Config{
		Env:         env,
		HTTPPort:    get("HTTP_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Migrate:     getBool("APP_MIGRATE", false),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		JWTIssuer:     get("JWT_ISSUER", "seva-donations"),
		AccessTTL:     getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    getDuration("JWT_REFRESH_TTL", 7*24*time.Hour),

		MerchantKey:           os.Getenv("MERCHANT_KEY"),
		MerchantSalt:          os.Getenv("MERCHANT_SALT"),
		PaymentMode:           strings.ToLower(get("PAYMENT_MODE", PaymentModeGateway)),
		GatewayURL:            get("PAYMENT_GATEWAY_URL", "https://test.payu.in/_payment"),
		PublicBaseURL:         strings.TrimRight(get("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		FrontendURL:           strings.TrimRight(get("FRONTEND_URL", "http://localhost:3000"), "/"),
		SimulatedConfirmDelay: getDuration("SIMULATED_CONFIRM_DELAY", 3*time.Second),

		RedisURL: os.Getenv("REDIS_URL"),
		CacheTTL: getDuration("CACHE_TTL", 5*time.Minute),

		RateRPS:     getInt("RATE_LIMIT_RPS", 100),
		WorkerCount: getInt("WORKER_COUNT", 4),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
	return cfg, cfg.Validate()
}

// Validate checks that externally supplied settings are present.
func (c Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	switch c.PaymentMode {
	case PaymentModeGateway:
		if c.MerchantKey == "" {
			missing = append(missing, "MERCHANT_KEY")
		}
		if c.MerchantSalt == "" {
			missing = append(missing, "MERCHANT_SALT")
		}
	case PaymentModeSimulated:
	default:
		return errors.New("PAYMENT_MODE must be gateway or simulated")
	}
	if len(missing) > 0 {
		return errors.New("missing required config: " + strings.Join(missing, ", "))
	}
	return nil
}

func get(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid int config, using default", "key", key, "default", def)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid bool config, using default", "key", key, "default", def)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration config, using default", "key", key, "default", def)
		return def
	}
	return d
}
