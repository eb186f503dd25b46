package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	SiteURL     string

	DatabaseURL string
	RedisURL    string

	SessionSecret string
	// TrustProxy makes the rate limiter key anonymous clients on X-Forwarded-For.
	// Only enable it behind a proxy that overwrites the header.
	TrustProxy bool
	NodeID     int64

	ShutdownTimeout time.Duration

	Mail MailConfig
}

type MailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	From         string
	ResendAPIKey string
	PerMinute    int
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads configuration from the environment. Outside production a .env
// file is loaded first when present.
func Load() *Config {
	if getEnv("ENVIRONMENT", "development") != "production" {
		if err := godotenv.Load(); err != nil {
			slog.Info("no .env file found, reading env vars from system")
		}
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		SiteURL:     getEnv("SITE_URL", "http://localhost:8080"),

		DatabaseURL: getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=squeakyknees port=5432 sslmode=disable"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		SessionSecret: getEnv("SESSION_SECRET", "secret_key_change_me"),
		TrustProxy:    getBoolEnv("TRUST_PROXY", false),
		NodeID:        int64(getIntEnv("NODE_ID", 0)),

		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),

		Mail: MailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPass:     getEnv("SMTP_PASS", ""),
			From:         getEnv("FROM_EMAIL", "noreply@example.com"),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			PerMinute:    getIntEnv("MAIL_PER_MINUTE", 30),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
