package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Log     LogConfig
	Redeem  RedeemConfig
	Import  ImportConfig
	Auth    AuthConfig
	Captcha CaptchaConfig
	SMTP    SMTPConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name     string `envconfig:"DB_NAME" default:"promo_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// RedeemConfig holds redemption and brute-force guard configuration.
type RedeemConfig struct {
	MaxAttempts  int `envconfig:"REDEEM_MAX_ATTEMPTS" default:"5"`
	BlockMinutes int `envconfig:"REDEEM_BLOCK_MINUTES" default:"15"`
}

// BlockDuration returns the lockout duration applied once MaxAttempts is reached.
func (c RedeemConfig) BlockDuration() time.Duration {
	return time.Duration(c.BlockMinutes) * time.Minute
}

// ImportConfig holds CSV import pipeline configuration.
type ImportConfig struct {
	ChunkSize    int `envconfig:"IMPORT_CHUNK_SIZE" default:"5000"`
	ChunkDelayMs int `envconfig:"IMPORT_CHUNK_DELAY_MS" default:"100"`
}

// ChunkDelay returns the pause applied between chunk inserts.
func (c ImportConfig) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelayMs) * time.Millisecond
}

// AuthConfig holds admin authentication configuration.
// WARNING: Default secret is for local development only.
type AuthConfig struct {
	JWTSecret     string `envconfig:"AUTH_JWT_SECRET" default:"dev-secret-change-me"` // CHANGE IN PRODUCTION
	TokenTTLHours int    `envconfig:"AUTH_TOKEN_TTL_HOURS" default:"12"`
	AdminEmail    string `envconfig:"AUTH_ADMIN_EMAIL" default:"admin@example.com"`
}

// TokenTTL returns the admin session token lifetime.
func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// CaptchaConfig holds captcha verification configuration.
// Disabled=true skips verification entirely (local development).
type CaptchaConfig struct {
	Disabled  bool   `envconfig:"CAPTCHA_DISABLED" default:"false"`
	Secret    string `envconfig:"CAPTCHA_SECRET" default:""`
	VerifyURL string `envconfig:"CAPTCHA_VERIFY_URL" default:"https://www.google.com/recaptcha/api/siteverify"`
}

// SMTPConfig holds outbound mail configuration for admin login codes.
// An empty Host disables real delivery; login codes are logged instead.
type SMTPConfig struct {
	Host string `envconfig:"SMTP_HOST" default:""`
	Port int    `envconfig:"SMTP_PORT" default:"587"`
	User string `envconfig:"SMTP_USER" default:""`
	Pass string `envconfig:"SMTP_PASS" default:""`
	From string `envconfig:"SMTP_FROM" default:"noreply@example.com"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
