package config

import (
	"time"

	"github.com/joho/godotenv"
)

// Config holds the core runtime configuration for the RFQ router.
// It supports environment-based initialization, with sensible defaults.
type Config struct {
	ServiceName string // e.g. "rfq-router"
	Env         string // e.g. "dev", "uat", "prod"
	LogLevel    string // "debug", "info", etc.

	HTTPPort         int // taker-facing REST API
	WSPort           int // maker-facing websocket listener
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	HTTPBodyLimit    int

	// NATS lifecycle event stream. Empty URL disables event publishing.
	NATSURL       string
	SubjectPrefix string // e.g. "evt.rfq"

	// Default auction window applied when a create request omits validUntilTs.
	DefaultAuctionWindow time.Duration

	// Per-connection outbound buffer; a maker that falls this far behind
	// starts dropping messages rather than stalling the broadcast.
	WSSendBuffer int

	// Admin token guarding mutating admin routes. Resolved from ADMIN_TOKEN,
	// or from AWS Secrets Manager when AdminTokenSecret is set. Empty means
	// the routes are unprotected (dev only).
	AdminToken       string
	AdminTokenSecret string
	AWSRegion        string
	SecretCacheTTL   time.Duration
}

// Load loads configuration from environment variables and .env file if present.
func Load() *Config {
	// load .env silently (no error if missing)
	_ = godotenv.Load()

	return &Config{
		ServiceName: GetEnv("SERVICE_NAME", "rfq-router"),
		Env:         GetEnv("ENV", "dev"),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),

		HTTPPort:         GetEnvInt("HTTP_PORT", 3001),
		WSPort:           GetEnvInt("WS_PORT", 3002),
		HTTPReadTimeout:  GetEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout: GetEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		HTTPIdleTimeout:  GetEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		HTTPBodyLimit:    GetEnvInt("HTTP_BODY_LIMIT", 1*1024*1024),

		NATSURL:       GetEnv("NATS_URL", ""),
		SubjectPrefix: GetEnv("EVENTS_SUBJECT_PREFIX", "evt.rfq"),

		DefaultAuctionWindow: GetEnvDuration("DEFAULT_AUCTION_WINDOW", 30*time.Second),
		WSSendBuffer:         GetEnvInt("WS_SEND_BUFFER", 64),

		AdminToken:       GetEnv("ADMIN_TOKEN", ""),
		AdminTokenSecret: GetEnv("ADMIN_TOKEN_SECRET", ""),
		AWSRegion:        GetEnv("AWS_REGION", "us-east-2"),
		SecretCacheTTL:   GetEnvDuration("SECRET_CACHE_TTL", 24*time.Hour),
	}
}
