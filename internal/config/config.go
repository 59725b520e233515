package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the booking service.
type Config struct {
	Environment string
	Port        int
	LogLevel    string
	Database    DatabaseConfig
	Redis       RedisConfig
	NATS        NATSConfig
	Bot         BotConfig
	Business    BusinessConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL string
}

// BotConfig holds the chat-transport credentials.
type BotConfig struct {
	Token          string
	WebhookSecret  string
	WebhookURL     string
	AdminSecretKey string
}

// BusinessConfig holds the booking business rules, fixed defaults that an
// operator may override per deployment but that the appointment logic
// otherwise treats as constants.
type BusinessConfig struct {
	Timezone                 string
	BookingHorizonDays       int
	MinBookingAheadHours     int
	DefaultBufferMinutes     int
	BufferOptions            []int
	WorkStart                string
	WorkEnd                  string
	ServiceDurationMinutes   int
	SleepingThresholdDays    int
	ReactivationCooldownDays int
}

// Load loads configuration from environment variables, layered on top of
// an optional config.yaml/config.json found on the working directory via
// viper — env vars always win, the file only supplies defaults for a
// deployment that prefers not to juggle a long env var list.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	port, err := strconv.Atoi(getEnv(v, "PORT", "8080"))
	if err != nil {
		port = 8080
	}

	bufferOptions, err := parseIntList(getEnv(v, "BUFFER_OPTIONS", "5,10,15"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUFFER_OPTIONS: %w", err)
	}

	horizonDays, err := strconv.Atoi(getEnv(v, "BOOKING_HORIZON_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_HORIZON_DAYS: %w", err)
	}
	minAhead, err := strconv.Atoi(getEnv(v, "MIN_BOOKING_AHEAD_HOURS", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_BOOKING_AHEAD_HOURS: %w", err)
	}
	defaultBuffer, err := strconv.Atoi(getEnv(v, "DEFAULT_BUFFER_MIN", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_BUFFER_MIN: %w", err)
	}
	serviceDuration, err := strconv.Atoi(getEnv(v, "SERVICE_DURATION_MIN", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVICE_DURATION_MIN: %w", err)
	}
	sleepingThreshold, err := strconv.Atoi(getEnv(v, "SLEEPING_THRESHOLD_DAYS", "90"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLEEPING_THRESHOLD_DAYS: %w", err)
	}
	reactivationCooldown, err := strconv.Atoi(getEnv(v, "REACTIVATION_COOLDOWN_DAYS", "90"))
	if err != nil {
		return nil, fmt.Errorf("invalid REACTIVATION_COOLDOWN_DAYS: %w", err)
	}

	return &Config{
		Environment: getEnv(v, "ENVIRONMENT", "development"),
		Port:        port,
		LogLevel:    getEnv(v, "LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			URL: getEnv(v, "DATABASE_URL", "postgres://localhost:5432/rasprav_bot?sslmode=disable"),
		},
		Redis: RedisConfig{
			URL: getEnv(v, "REDIS_URL", "redis://localhost:6379"),
		},
		NATS: NATSConfig{
			URL: getEnv(v, "NATS_URL", "nats://localhost:4222"),
		},
		Bot: BotConfig{
			Token:          getEnv(v, "BOT_TOKEN", ""),
			WebhookSecret:  getEnv(v, "WEBHOOK_SECRET", ""),
			WebhookURL:     getEnv(v, "WEBHOOK_URL", ""),
			AdminSecretKey: getEnv(v, "ADMIN_SECRET_KEY", ""),
		},
		Business: BusinessConfig{
			Timezone:                 getEnv(v, "TIMEZONE", "Europe/Moscow"),
			BookingHorizonDays:       horizonDays,
			MinBookingAheadHours:     minAhead,
			DefaultBufferMinutes:     defaultBuffer,
			BufferOptions:            bufferOptions,
			WorkStart:                getEnv(v, "WORK_START", "09:00"),
			WorkEnd:                  getEnv(v, "WORK_END", "20:00"),
			ServiceDurationMinutes:   serviceDuration,
			SleepingThresholdDays:    sleepingThreshold,
			ReactivationCooldownDays: reactivationCooldown,
		},
	}, nil
}

// getEnv prefers the real environment, then the config file loaded into v,
// then the supplied fallback.
func getEnv(v *viper.Viper, key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value := v.GetString(key); value != "" {
		return value
	}
	return fallback
}

func parseIntList(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
