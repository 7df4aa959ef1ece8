package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/opensource-finance/leadscore/internal/domain"
)

const envPrefix = "LEADSCORE_"

// loadConfig builds the configuration from the tier defaults, a .env file
// in the working directory (if present) and LEADSCORE_* variables. Values
// already in the environment win over .env.
func loadConfig() (*domain.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return configFromEnv()
}

func configFromEnv() (*domain.Config, error) {
	cfg := domain.DefaultConfig()

	switch tier := env("TIER"); tier {
	case "", string(domain.TierCommunity):
	case string(domain.TierPro):
		cfg = domain.ProConfig()
	default:
		return nil, fmt.Errorf("unknown tier %q", tier)
	}

	var err error
	setInt := func(key string, dst *int) {
		if err != nil {
			return
		}
		if v := env(key); v != "" {
			n, convErr := strconv.Atoi(v)
			if convErr != nil {
				err = fmt.Errorf("%s%s: %w", envPrefix, key, convErr)
				return
			}
			*dst = n
		}
	}
	setString := func(key string, dst *string) {
		if v := env(key); v != "" {
			*dst = v
		}
	}

	setString("HOST", &cfg.Server.Host)
	setInt("PORT", &cfg.Server.Port)

	setString("SQLITE_PATH", &cfg.Repository.SQLitePath)
	setString("POSTGRES_URL", &cfg.Repository.PostgresURL)
	setString("POSTGRES_HOST", &cfg.Repository.PostgresHost)
	setInt("POSTGRES_PORT", &cfg.Repository.PostgresPort)
	setString("POSTGRES_USER", &cfg.Repository.PostgresUser)
	setString("POSTGRES_PASSWORD", &cfg.Repository.PostgresPassword)
	setString("POSTGRES_DB", &cfg.Repository.PostgresDB)
	setString("POSTGRES_SSLMODE", &cfg.Repository.PostgresSSLMode)

	setString("CACHE", &cfg.Cache.Type)
	setString("REDIS_ADDR", &cfg.Cache.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.Cache.RedisPassword)

	setString("EVENT_BUS", &cfg.EventBus.Type)
	setString("NATS_URL", &cfg.EventBus.NATSUrl)
	setString("NATS_TOKEN", &cfg.EventBus.NATSToken)
	setString("NATS_QUEUE_GROUP", &cfg.EventBus.NATSQueueGroup)

	setString("RULES_FILE", &cfg.Scoring.RulesFile)
	setString("PHONE_REGION", &cfg.Scoring.PhoneRegion)
	setInt("MAX_WORKERS", &cfg.Scoring.MaxWorkers)
	if err != nil {
		return nil, err
	}

	if v := env("ACTIVITY_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%sACTIVITY_WINDOW: %w", envPrefix, err)
		}
		cfg.Scoring.ActivityWindow = d
	}
	if v := env("ASYNC_WORKER"); v != "" {
		cfg.Scoring.AsyncWorker = v == "true"
	}

	setString("LOG_LEVEL", &cfg.Logging.Level)
	if env("DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}

// tenantList parses LEADSCORE_TENANTS, a comma-separated list of tenants
// served by the async worker.
func tenantList() []string {
	var tenants []string
	for _, t := range strings.Split(env("TENANTS"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tenants = append(tenants, t)
		}
	}
	return tenants
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func env(key string) string {
	return os.Getenv(envPrefix + key)
}
