// Package config loads the server configuration.
//
// Values come from the process environment. An optional .env file in the
// working directory is loaded first; variables already set in the
// environment win over the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config is the full server configuration.
type Config struct {
	Port int

	StoreDriver   string
	DBPath        string
	MongoURI      string
	MongoDatabase string

	JWTSecret     string
	UserTokenTTL  time.Duration
	JudgeTokenTTL time.Duration
	JudgeCodes    []string
	CookieSecure  bool

	ClientURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MailgunDomain string
	MailgunAPIKey string
	MailSender    string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// Requests per RateLimitWindow and client IP; 0 turns a limit off.
	RateLimitRequests     int
	AuthRateLimitRequests int
	RateLimitWindow       time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port: getEnvAsInt("PORT", 8080),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
		DBPath:        getEnv("DB_PATH", "data/hackhub.db"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "hackhub"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		UserTokenTTL:  getEnvAsDuration("USER_TOKEN_TTL", 7*24*time.Hour),
		JudgeTokenTTL: getEnvAsDuration("JUDGE_TOKEN_TTL", 7*24*time.Hour),
		JudgeCodes:    getEnvAsList("JUDGE_CODES", []string{"JUDGE2024", "HACKJUDGE"}),
		CookieSecure:  getEnvAsBool("COOKIE_SECURE", false),

		ClientURL: strings.TrimRight(getEnv("CLIENT_URL", "http://localhost:5173"), "/"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		MailgunDomain: getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey: getEnv("MAILGUN_API_KEY", ""),
		MailSender:    getEnv("MAIL_SENDER", "HackHub <no-reply@hackhub.local>"),

		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		GitHubCallbackURL:  getEnv("GITHUB_CALLBACK_URL", ""),

		RateLimitRequests:     getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		AuthRateLimitRequests: getEnvAsInt("RATE_LIMIT_AUTH_REQUESTS", 50),
		RateLimitWindow:       getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	switch c.StoreDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return errors.New("config: DB_PATH is required for the sqlite store")
		}
	case DriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("config: MONGO_URI and MONGO_DATABASE are required for the mongo store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	if c.UserTokenTTL <= 0 || c.JudgeTokenTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if len(c.JudgeCodes) == 0 {
		return errors.New("config: JUDGE_CODES must list at least one code")
	}
	if c.RateLimitRequests < 0 || c.AuthRateLimitRequests < 0 {
		return errors.New("config: rate limits must not be negative")
	}
	if (c.RateLimitRequests > 0 || c.AuthRateLimitRequests > 0) && c.RateLimitWindow <= 0 {
		return errors.New("config: RATE_LIMIT_WINDOW must be positive")
	}
	if (c.MailgunDomain == "") != (c.MailgunAPIKey == "") {
		return errors.New("config: MAILGUN_DOMAIN and MAILGUN_API_KEY must be set together")
	}
	return nil
}

// MailEnabled reports whether a real mail provider is configured.
func (c *Config) MailEnabled() bool { return c.MailgunDomain != "" }

// GitHubEnabled reports whether GitHub login is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) Logger() *slog.Logger {
	level := slog.LevelInfo
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
