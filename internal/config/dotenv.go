package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Port                     string
	DatabaseURL              string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	RoundSeconds             int
	TimeoutScanSeconds       int
	DigestHourUTC            int
	OutboxPollSeconds        int
	DefaultMaxPlayers        int
	DefaultMaxRounds         int
	RedisAddr                string
	RedisDB                  int
	NotifyQueue              string
	AppURL                   string
	JWTSecret                string
	AllowedOrigins           []string
	LogLevel                 string
	LogFormat                string
	RateLimitPerSecond       float64
	RateLimitBurst           int
}

func Default() Config {
	return Config{
		Port:                     "8080",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		RoundSeconds:             120,
		TimeoutScanSeconds:       30,
		DigestHourUTC:            18,
		OutboxPollSeconds:        5,
		DefaultMaxPlayers:        6,
		DefaultMaxRounds:         5,
		NotifyQueue:              "draw_royale_mail",
		AppURL:                   "http://localhost:8080",
		LogLevel:                 "info",
		LogFormat:                "text",
		RateLimitPerSecond:       10,
		RateLimitBurst:           20,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("ROUND_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RoundSeconds = value
		}
	}
	if raw := os.Getenv("TIMEOUT_SCAN_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.TimeoutScanSeconds = value
		}
	}
	if raw := os.Getenv("DIGEST_HOUR_UTC"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 && value < 24 {
			cfg.DigestHourUTC = value
		}
	}
	if raw := os.Getenv("OUTBOX_POLL_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.OutboxPollSeconds = value
		}
	}
	if raw := os.Getenv("DEFAULT_MAX_PLAYERS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DefaultMaxPlayers = value
		}
	}
	if raw := os.Getenv("DEFAULT_MAX_ROUNDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DefaultMaxRounds = value
		}
	}
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.RedisDB = value
		}
	}
	if raw := os.Getenv("NOTIFY_QUEUE"); raw != "" {
		cfg.NotifyQueue = raw
	}
	if raw := os.Getenv("APP_URL"); raw != "" {
		cfg.AppURL = strings.TrimRight(raw, "/")
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("LOG_FORMAT"); raw != "" {
		cfg.LogFormat = raw
	}
	if raw := os.Getenv("RATE_LIMIT_PER_SECOND"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.RateLimitPerSecond = value
		}
	}
	if raw := os.Getenv("RATE_LIMIT_BURST"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RateLimitBurst = value
		}
	}
	return cfg
}
