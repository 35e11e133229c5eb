package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultHTTPAddr            = ":8080"
	defaultJWTAccessTTL        = "12h"
	defaultJWTSecret           = "change-me-jwt-secret"
	defaultCurrency            = "USD"
	defaultLogLevel            = "info"
	defaultPendingAbandonAfter = "24h"
	defaultCacheTTL            = "30s"
	defaultGatewayBaseURL      = "https://auth.robokassa.ru/Merchant/Index.aspx"
	defaultGatewayRefundURL    = "https://services.robokassa.ru/RefundService/Refund/Create"
	defaultGatewayIsTest       = "1"
)

type GatewayConfig struct {
	MerchantLogin string
	Password1     string
	Password2     string
	Password3     string
	BaseURL       string
	RefundURL     string
	ResultURL     string
	SuccessURL    string
	IsTest        string
}

// Configured reports whether intents can be signed.
func (g GatewayConfig) Configured() bool {
	return g.MerchantLogin != "" && g.Password1 != "" && g.Password2 != ""
}

type Config struct {
	AppEnv              string
	HTTPAddr            string
	DatabaseURL         string
	RedisAddr           string
	AvailabilityTTL     time.Duration
	JWTSecret           string
	JWTAccessTTL        time.Duration
	Currency            string
	LogLevel            string
	CORSAllowedOrigins  []string
	WebhookAllowedIPs   []string
	TrustedProxies      []string
	PendingAbandonAfter time.Duration
	Gateway             GatewayConfig
}

func Load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.Currency = strings.ToUpper(strings.TrimSpace(getEnv("CURRENCY", defaultCurrency)))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))
	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	cfg.WebhookAllowedIPs = splitList(os.Getenv("WEBHOOK_ALLOWED_IPS"))
	cfg.TrustedProxies = splitList(os.Getenv("TRUSTED_PROXIES"))

	var err error
	cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL)
	if err != nil {
		return nil, err
	}

	cfg.PendingAbandonAfter, err = parseDurationEnv("PENDING_ABANDON_AFTER", defaultPendingAbandonAfter)
	if err != nil {
		return nil, err
	}

	cfg.AvailabilityTTL, err = parseDurationEnv("AVAILABILITY_CACHE_TTL", defaultCacheTTL)
	if err != nil {
		return nil, err
	}

	cfg.Gateway = GatewayConfig{
		MerchantLogin: strings.TrimSpace(os.Getenv("GATEWAY_MERCHANT_LOGIN")),
		Password1:     os.Getenv("GATEWAY_PASSWORD1"),
		Password2:     os.Getenv("GATEWAY_PASSWORD2"),
		Password3:     os.Getenv("GATEWAY_PASSWORD3"),
		BaseURL:       getEnv("GATEWAY_BASE_URL", defaultGatewayBaseURL),
		RefundURL:     getEnv("GATEWAY_REFUND_URL", defaultGatewayRefundURL),
		ResultURL:     os.Getenv("GATEWAY_RESULT_URL"),
		SuccessURL:    os.Getenv("GATEWAY_SUCCESS_URL"),
		IsTest:        getEnv("GATEWAY_IS_TEST", defaultGatewayIsTest),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.PendingAbandonAfter <= 0 {
		return fmt.Errorf("PENDING_ABANDON_AFTER must be > 0")
	}
	if cfg.AvailabilityTTL <= 0 {
		return fmt.Errorf("AVAILABILITY_CACHE_TTL must be > 0")
	}
	if len(cfg.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be an ISO 4217 code, got %q", cfg.Currency)
	}

	if IsProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if !cfg.Gateway.Configured() {
			return fmt.Errorf("in prod/release GATEWAY_MERCHANT_LOGIN, GATEWAY_PASSWORD1 and GATEWAY_PASSWORD2 must be set")
		}
		if cfg.Gateway.Password3 == "" {
			return fmt.Errorf("in prod/release GATEWAY_PASSWORD3 must be set for refunds")
		}
	}

	return nil
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
