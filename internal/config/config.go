package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Database drivers understood by the composition root.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the process-wide configuration, loaded once at start.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat is "text" or "json".
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	TelegramBotToken    string        `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`
	TelegramPollTimeout time.Duration `env:"TELEGRAM_POLL_TIMEOUT" envDefault:"10s"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL"`
	DatabaseSchema string `env:"DATABASE_SCHEMA"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"./data/soulmine.db"`

	RedisURL      string        `env:"REDIS_URL"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisTLS      bool          `env:"REDIS_TLS" envDefault:"false"`
	UserCacheTTL  time.Duration `env:"USER_CACHE_TTL" envDefault:"1h"`

	WebAppURL       string `env:"WEB_APP_URL" envDefault:"https://soulmine.app"`
	MiniAppURL      string `env:"MINI_APP_URL" envDefault:"https://soulmine.app/mini-app"`
	WalletURL       string `env:"WALLET_URL" envDefault:"https://soulmine.app/wallet"`
	BotUsername     string `env:"BOT_USERNAME" envDefault:"soulmine_bot"`
	SupportUsername string `env:"SUPPORT_USERNAME" envDefault:"soulmine_support"`
	SupportEmail    string `env:"SUPPORT_EMAIL" envDefault:"support@soulmine.app"`
	SupportPhone    string `env:"SUPPORT_PHONE" envDefault:"+1 (555) 123-4567"`

	AdminIDs      []int64 `env:"ADMIN_IDS" envSeparator:","`
	AdminAPIToken string  `env:"ADMIN_API_TOKEN"`

	HTTPListenAddr   string `env:"HTTP_LISTEN_ADDR" envDefault:":8080"`
	HTTPBasePath     string `env:"HTTP_BASE_PATH"`
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"soulmine"`

	BroadcastSendTimeout   time.Duration `env:"BROADCAST_SEND_TIMEOUT" envDefault:"10s"`
	BroadcastRatePerSecond float64       `env:"BROADCAST_RATE_PER_SECOND" envDefault:"25"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for driver %q", c.DatabaseDriver)
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required for driver %q", c.DatabaseDriver)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.BroadcastRatePerSecond < 0 {
		return fmt.Errorf("BROADCAST_RATE_PER_SECOND must not be negative")
	}
	return nil
}

// IsAdmin reports whether the Telegram user id belongs to an administrator.
func (c *Config) IsAdmin(telegramID int64) bool {
	return slices.Contains(c.AdminIDs, telegramID)
}
