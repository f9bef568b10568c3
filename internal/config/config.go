// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env       string // application environment (dev, prod)
	Port      string // HTTP port to listen on
	JWTSecret string // secret the booking backend signs access tokens with
	LogLevel  string

	BackendURL     string        // base URL of the booking backend API
	BackendTimeout time.Duration // per request

	DB        DBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig

	// RabbitMQURL is optional; booking events are not exchanged without it.
	RabbitMQURL string

	Seats   SeatConfig
	Payment PaymentConfig

	ShowtimeCacheTTL time.Duration
	CachePrefix      string
}

// DBConfig points at the MySQL database holding checkout attempts.  An
// empty Host disables auditing.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string

	// AttemptRetention is how long checkout attempts are kept; PurgeEvery is
	// how often the retention job runs.
	AttemptRetention time.Duration
	PurgeEvery       time.Duration
}

func (c DBConfig) Enabled() bool { return c.Host != "" }

// SeatConfig describes the seat map and hold behaviour.
type SeatConfig struct {
	Rows          int
	PerRow        int
	MaxPerBooking int
	HoldTTL       time.Duration
}

// PaymentConfig controls where the payment result page sends the viewer.
type PaymentConfig struct {
	SuccessPath      string
	SuccessCountdown time.Duration
	FailurePath      string
	FailureCountdown time.Duration
}

// Load reads a .env file when present and then the environment.  Missing
// required variables are reported together.
func Load() (Config, error) {
	_ = godotenv.Load()

	var l loader
	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "8080"),
		JWTSecret:      l.must("JWT_SECRET"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		BackendURL:     l.must("BACKEND_URL"),
		BackendTimeout: envDur("BACKEND_TIMEOUT", 10*time.Second),
		DB: DBConfig{
			User: envStr("DB_USER", "root"),
			Pass: os.Getenv("DB_PASS"),
			Host: os.Getenv("DB_HOST"),
			Port: envStr("DB_PORT", "3306"),
			Name: envStr("DB_NAME", "cinema_checkout"),

			AttemptRetention: envDur("ATTEMPT_RETENTION", 30*24*time.Hour),
			PurgeEvery:       envDur("ATTEMPT_PURGE_EVERY", time.Hour),
		},
		Redis:       LoadRedisConfig(),
		RateLimit:   LoadRateLimitConfig(),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
		Seats: SeatConfig{
			Rows:          envInt("SEAT_ROWS", 8),
			PerRow:        envInt("SEATS_PER_ROW", 10),
			MaxPerBooking: envInt("MAX_SEATS_PER_BOOKING", 8),
			HoldTTL:       envDur("SEAT_HOLD_TTL", 5*time.Minute),
		},
		Payment: PaymentConfig{
			SuccessPath:      envStr("PAYMENT_SUCCESS_PATH", "/my-tickets"),
			SuccessCountdown: envDur("SUCCESS_COUNTDOWN", 5*time.Second),
			FailurePath:      envStr("PAYMENT_FAILURE_PATH", "/"),
			FailureCountdown: envDur("FAILURE_COUNTDOWN", 10*time.Second),
		},
		ShowtimeCacheTTL: envDur("SHOWTIME_CACHE_TTL", time.Minute),
		CachePrefix:      envStr("CACHE_PREFIX", "cache"),
	}
	if err := l.err(); err != nil {
		return Config{}, err
	}
	if cfg.Seats.Rows < 1 || cfg.Seats.Rows > 26 || cfg.Seats.PerRow < 1 {
		return Config{}, fmt.Errorf("invalid seat layout %dx%d", cfg.Seats.Rows, cfg.Seats.PerRow)
	}
	return cfg, nil
}

// IsDev reports whether the process runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local":
		return true
	}
	return false
}

// loader collects required variables that are unset.
type loader struct {
	missing []string
}

func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.missing = append(l.missing, key)
	}
	return v
}

func (l *loader) err() error {
	if len(l.missing) == 0 {
		return nil
	}
	return errors.New("missing required env vars: " + strings.Join(l.missing, ", "))
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
