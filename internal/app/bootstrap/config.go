package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultConfigPath is where the mains look when CONFIG_FILE is unset.
const defaultConfigPath = "configs/default.yaml"

// ConfigPath resolves the config file location, honoring CONFIG_FILE.
func ConfigPath() string {
	return envOrDefault("CONFIG_FILE", defaultConfigPath)
}

// Config is the resolved runtime configuration for the gatekeeper.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string
	LogLevel  slog.Level

	HTTPPort int

	RedisURL string

	AdminToken string
	JWTSecret  string

	SlotReserveTTL time.Duration
	SlotSessionTTL time.Duration
	UsageTTL       time.Duration
	TokenValidity  time.Duration

	EnforceInterval time.Duration

	ControlAddr    string
	ControlInput   string
	ControlTimeout time.Duration

	WebhookTimeout         time.Duration
	WebhookSecretMinLength int
	DeliveryLogTTL         time.Duration
	StatsWindow            int
	DeliveryPageLimit      int

	DispatchRetryWait time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		LogLevel string `yaml:"log_level"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		RedisURL string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Livestream struct {
		ControlAddr  string `yaml:"control_addr"`
		ControlInput string `yaml:"control_input"`
	} `yaml:"livestream"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:              "h4kstream",
		LogLevel:               slog.LevelInfo,
		HTTPPort:               8080,
		RedisURL:               "redis://localhost:6379/0",
		SlotReserveTTL:         120 * time.Second,
		SlotSessionTTL:         time.Hour,
		UsageTTL:               30 * 24 * time.Hour,
		TokenValidity:          24 * time.Hour,
		EnforceInterval:        10 * time.Second,
		ControlAddr:            "localhost:1234",
		ControlInput:           "live",
		ControlTimeout:         2 * time.Second,
		WebhookTimeout:         5 * time.Second,
		WebhookSecretMinLength: 16,
		DeliveryLogTTL:         7 * 24 * time.Hour,
		StatsWindow:            1000,
		DeliveryPageLimit:      100,
		DispatchRetryWait:      5 * time.Second,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.LogLevel != "" {
			level, parseErr := parseLogLevel(f.Service.LogLevel)
			if parseErr != nil {
				return Config{}, parseErr
			}
			cfg.LogLevel = level
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Livestream.ControlAddr != "" {
			cfg.ControlAddr = f.Livestream.ControlAddr
		}
		if f.Livestream.ControlInput != "" {
			cfg.ControlInput = f.Livestream.ControlInput
		}
	}

	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.AdminToken = envOrDefault("ADMIN_TOKEN", cfg.AdminToken)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.ControlAddr = envOrDefault("CONTROL_ADDR", cfg.ControlAddr)
	cfg.ControlInput = envOrDefault("CONTROL_INPUT", cfg.ControlInput)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.WebhookSecretMinLength = envInt("WEBHOOK_SECRET_MIN_LENGTH", cfg.WebhookSecretMinLength)
	cfg.StatsWindow = envInt("WEBHOOK_STATS_WINDOW", cfg.StatsWindow)
	cfg.DeliveryPageLimit = envInt("WEBHOOK_DELIVERY_PAGE_LIMIT", cfg.DeliveryPageLimit)

	cfg.SlotReserveTTL = envDuration("SLOT_RESERVE_TTL", cfg.SlotReserveTTL)
	cfg.SlotSessionTTL = envDuration("SLOT_SESSION_TTL", cfg.SlotSessionTTL)
	cfg.UsageTTL = envDuration("USAGE_TTL", cfg.UsageTTL)
	cfg.TokenValidity = envDuration("TOKEN_VALIDITY", cfg.TokenValidity)
	cfg.EnforceInterval = envDuration("ENFORCE_INTERVAL", cfg.EnforceInterval)
	cfg.ControlTimeout = envDuration("CONTROL_TIMEOUT", cfg.ControlTimeout)
	cfg.WebhookTimeout = envDuration("WEBHOOK_TIMEOUT", cfg.WebhookTimeout)
	cfg.DeliveryLogTTL = envDuration("DELIVERY_LOG_TTL", cfg.DeliveryLogTTL)
	cfg.DispatchRetryWait = envDuration("DISPATCH_RETRY_WAIT", cfg.DispatchRetryWait)

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level, parseErr := parseLogLevel(raw)
		if parseErr != nil {
			return Config{}, parseErr
		}
		cfg.LogLevel = level
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}
	if cfg.AdminToken == "" {
		return Config{}, fmt.Errorf("missing ADMIN_TOKEN")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envDuration parses duration env vars ("90s", "2h"); bare integers are
// read as seconds. Invalid values fall back.
func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}
