package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the full runtime configuration, loaded from environment
// variables with optional .env overrides for local development.
type Config struct {
	Port          string
	DBPath        string
	LogLevel      string
	Production    bool
	SessionSecret string
	WebhookSecret string

	// Rate-limit tier overrides (counts per window). Zero means default.
	RevisitPerMin  int
	RevisitPerHour int
	RevisitPerDay  int
	CodePerMin     int
	WebhookPerMin  int
}

// Load reads configuration from the environment. A missing .env file is not
// an error. SessionSecret and WebhookSecret have no defaults; the caller
// decides whether their absence is fatal.
func Load() *Config {
	// Best effort; real deployments set env directly.
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("LF_PORT", "8080"),
		DBPath:        getEnv("LF_DB_PATH", "lynqrate.db"),
		LogLevel:      getEnv("LF_LOG_LEVEL", "info"),
		Production:    os.Getenv("LF_ENV") == "production",
		SessionSecret: os.Getenv("LF_SESSION_SECRET"),
		WebhookSecret: os.Getenv("LF_WEBHOOK_SECRET"),

		RevisitPerMin:  getEnvInt("RL_REVISIT_PER_MIN", 0),
		RevisitPerHour: getEnvInt("RL_REVISIT_PER_HOUR", 0),
		RevisitPerDay:  getEnvInt("RL_REVISIT_PER_DAY", 0),
		CodePerMin:     getEnvInt("RL_CODE_PER_MIN", 0),
		WebhookPerMin:  getEnvInt("RL_WEBHOOK_PER_MIN", 0),
	}
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("LF_SESSION_SECRET is required")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("LF_WEBHOOK_SECRET is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
