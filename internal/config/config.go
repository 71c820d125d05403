package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the triage agent service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	JanitorInterval          time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAITemperature float64
	ClientTimeout     time.Duration
	MaxInferenceTurns int

	KnowledgeDir string

	DispatchURL     string
	DispatchTimeout time.Duration

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "medicall"),
		AllowAnyOrigin:           false,
		OpenAIAPIKey:             stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIModel:              envOrDefault("OPENAI_MODEL", "gpt-4o"),
		OpenAITemperature:        0.2,
		KnowledgeDir:             stringsTrimSpace("KNOWLEDGE_DIR"),
		DispatchURL:              stringsTrimSpace("DISPATCH_URL"),
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 10 * time.Minute,
		JanitorInterval:          30 * time.Second,
		ClientTimeout:            15 * time.Second,
		DispatchTimeout:          5 * time.Second,
		MaxInferenceTurns:        8,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.JanitorInterval, err = durationFromEnv("APP_JANITOR_INTERVAL", cfg.JanitorInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.ClientTimeout, err = durationFromEnv("LLM_CLIENT_TIMEOUT", cfg.ClientTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DispatchTimeout, err = durationFromEnv("DISPATCH_TIMEOUT", cfg.DispatchTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxInferenceTurns, err = intFromEnv("TRIAGE_MAX_INFERENCE_TURNS", cfg.MaxInferenceTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAITemperature, err = floatFromEnv("OPENAI_TEMPERATURE", cfg.OpenAITemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.ClientTimeout <= 0 {
		return Config{}, fmt.Errorf("LLM_CLIENT_TIMEOUT must be positive")
	}
	if cfg.MaxInferenceTurns <= 0 {
		return Config{}, fmt.Errorf("TRIAGE_MAX_INFERENCE_TURNS must be positive")
	}
	if cfg.OpenAITemperature < 0 || cfg.OpenAITemperature > 2 {
		return Config{}, fmt.Errorf("OPENAI_TEMPERATURE must be in [0, 2]")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
