package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "ensemble.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ENSEMBLE_PORT")
	setString(&cfg.Server.CORSOrigin, "ENSEMBLE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ENSEMBLE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ENSEMBLE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ENSEMBLE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ENSEMBLE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ENSEMBLE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Oracle.URL, "ENSEMBLE_ORACLE_URL")
	setDuration(&cfg.Oracle.Timeout, "ENSEMBLE_ORACLE_TIMEOUT")
	setString(&cfg.SMTP.Host, "ENSEMBLE_SMTP_HOST")
	setInt(&cfg.SMTP.Port, "ENSEMBLE_SMTP_PORT")
	setString(&cfg.SMTP.From, "ENSEMBLE_SMTP_FROM")
	setString(&cfg.SMTP.Password, "ENSEMBLE_SMTP_PASSWORD")
	setStringList(&cfg.Auth.PlatformAdmins, "ENSEMBLE_PLATFORM_ADMINS")
	setDuration(&cfg.Auth.DirectoryTTL, "ENSEMBLE_DIRECTORY_TTL")
	setInt(&cfg.Reminder.Hour, "ENSEMBLE_REMINDER_HOUR")
	setInt(&cfg.Reminder.Minute, "ENSEMBLE_REMINDER_MINUTE")
	setString(&cfg.Reminder.Timezone, "ENSEMBLE_REMINDER_TZ")
	setDuration(&cfg.Reminder.WindowStart, "ENSEMBLE_REMINDER_WINDOW_START")
	setDuration(&cfg.Reminder.WindowEnd, "ENSEMBLE_REMINDER_WINDOW_END")
	setInt64(&cfg.Cache.MaxCostBytes, "ENSEMBLE_CACHE_MAX_COST")
	setString(&cfg.Logging.Level, "ENSEMBLE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ENSEMBLE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "ENSEMBLE_LOG_ASYNC")
	setBool(&cfg.Otel.Enabled, "ENSEMBLE_OTEL_ENABLED")
	setString(&cfg.Otel.Endpoint, "ENSEMBLE_OTEL_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Reminder.Hour < 0 || cfg.Reminder.Hour > 23 {
		return errors.New("reminder.hour must be in [0, 23]")
	}
	if cfg.Reminder.Minute < 0 || cfg.Reminder.Minute > 59 {
		return errors.New("reminder.minute must be in [0, 59]")
	}
	if _, err := time.LoadLocation(cfg.Reminder.Timezone); err != nil {
		return fmt.Errorf("reminder.timezone: %w", err)
	}
	if cfg.Reminder.WindowEnd <= cfg.Reminder.WindowStart {
		return errors.New("reminder.window_end must be after reminder.window_start")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStringList(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
