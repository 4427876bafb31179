// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty outside production runs the server on in-memory stores.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment ("development", "production", ...).
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; signs session tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// TokenPepper is the secret from which OTP and session digest keys are derived.
	TokenPepper string `mapstructure:"TOKEN_PEPPER"`

	// SessionTTLRaw is the session lifetime (e.g. "1h").
	SessionTTLRaw string `mapstructure:"SESSION_TTL"`
	// SessionRefreshWindowRaw is the remaining lifetime at or under which a validated session is extended.
	SessionRefreshWindowRaw string `mapstructure:"SESSION_REFRESH_WINDOW"`
	// OTPTTLRaw is the challenge lifetime (e.g. "5m").
	OTPTTLRaw string `mapstructure:"OTP_TTL"`
	// OTPMaxAttempts is the number of failed submissions that closes a challenge.
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
	// OTPResendCooldownRaw is the minimum interval between two issued challenges for one identity; "0" disables.
	OTPResendCooldownRaw string `mapstructure:"OTP_RESEND_COOLDOWN"`
	// OTPReturnToClient enables dev OTP mode: codes are captured for DevService/GetOTP instead of being sent.
	// Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	SMSLocalAPIKey  string `mapstructure:"SMS_LOCAL_API_KEY"`
	SMSLocalSender  string `mapstructure:"SMS_LOCAL_SENDER"`
	SMSLocalBaseURL string `mapstructure:"SMS_LOCAL_BASE_URL"`

	// SMTPAddr is host:port of the mail relay used for email OTP delivery.
	SMTPAddr     string `mapstructure:"SMTP_ADDR"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	// KafkaBrokers is a comma-separated list of brokers; when set, audit events are also published to Kafka.
	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group of the audit forwarder worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Loki base URL the audit forwarder pushes to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTelEndpoint is the OTLP gRPC collector; empty disables export.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// AccessPolicyFile optionally replaces the embedded Rego access policy.
	AccessPolicyFile string `mapstructure:"ACCESS_POLICY_FILE"`

	// RateLimitRPS and RateLimitBurst throttle unauthenticated login RPCs per client IP.
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "asset-registry-auth")
	v.SetDefault("JWT_AUDIENCE", "asset-registry-api")
	v.SetDefault("TOKEN_PEPPER", "")
	v.SetDefault("SESSION_TTL", "1h")
	v.SetDefault("SESSION_REFRESH_WINDOW", "15m")
	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("OTP_RESEND_COOLDOWN", "30s")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("SMS_LOCAL_API_KEY", "")
	v.SetDefault("SMS_LOCAL_SENDER", "")
	v.SetDefault("SMS_LOCAL_BASE_URL", "https://app.smslocal.in/api/smsapi")
	v.SetDefault("SMTP_ADDR", "")
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "asset-registry-audit")
	v.SetDefault("KAFKA_GROUP_ID", "asset-registry-audit-forwarder")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "asset-registry")
	v.SetDefault("ACCESS_POLICY_FILE", "")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if c.OTPReturnToClient && c.IsProduction() {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if c.OTPMaxAttempts < 1 {
		return errors.New("config: OTP_MAX_ATTEMPTS must be at least 1")
	}
	for key, raw := range map[string]string{
		"SESSION_TTL":            c.SessionTTLRaw,
		"SESSION_REFRESH_WINDOW": c.SessionRefreshWindowRaw,
		"OTP_TTL":                c.OTPTTLRaw,
		"OTP_RESEND_COOLDOWN":    c.OTPResendCooldownRaw,
	} {
		if d, err := time.ParseDuration(raw); err != nil || d < 0 {
			return errors.New("config: " + key + " must be a non-negative duration")
		}
	}
	if c.SessionTTL() <= c.SessionRefreshWindow() {
		return errors.New("config: SESSION_TTL must be longer than SESSION_REFRESH_WINDOW")
	}
	if c.IsProduction() {
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when APP_ENV=production")
		}
		if len(c.TokenPepper) < 32 {
			return errors.New("config: TOKEN_PEPPER must be at least 32 bytes when APP_ENV=production")
		}
		if c.JWTPrivateKey == "" || c.JWTPublicKey == "" {
			return errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required when APP_ENV=production")
		}
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// SessionTTL returns the session lifetime. Returns 1h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	return parseDuration(c.SessionTTLRaw, time.Hour)
}

// SessionRefreshWindow returns the sliding-expiry window. Returns 15m if unset or invalid.
func (c *Config) SessionRefreshWindow() time.Duration {
	return parseDuration(c.SessionRefreshWindowRaw, 15*time.Minute)
}

// OTPTTL returns the challenge lifetime. Returns 5m if unset or invalid.
func (c *Config) OTPTTL() time.Duration {
	return parseDuration(c.OTPTTLRaw, 5*time.Minute)
}

// OTPResendCooldown returns the resend cooldown; zero disables it.
func (c *Config) OTPResendCooldown() time.Duration {
	d, err := time.ParseDuration(c.OTPResendCooldownRaw)
	if err != nil || d < 0 {
		return 30 * time.Second
	}
	return d
}

func parseDuration(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the Kafka audit emitter.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
