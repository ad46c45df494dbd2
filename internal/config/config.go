package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	HTTPAddr           string        `env:"HTTP_ADDR" envDefault:":8080"`
	HTTPRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	TenantID           string        `env:"TENANT_ID" envDefault:"default"`

	CatalogAPIBaseURL string `env:"CATALOG_API_BASE_URL"`
	CatalogAPIKey     string `env:"CATALOG_API_KEY"`

	TelegramToken  string  `env:"TELEGRAM_TOKEN"`
	AdminIDs       []int64 `env:"ADMIN_IDS" envSeparator:","`
	NotifyMinTotal float64 `env:"NOTIFY_MIN_TOTAL" envDefault:"10000"`

	RedisAddr     string        `env:"REDIS_ADDR,required"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	DBHost            string        `env:"DB_HOST,required"`
	DBPort            int           `env:"DB_PORT,required"`
	DBUser            string        `env:"DB_USER,required"`
	DBPassword        string        `env:"DB_PASSWORD,required"`
	DBName            string        `env:"DB_NAME,required"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"2m"`

	RateLimitPerMinute int64  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	ExportDir          string `env:"EXPORT_DIR" envDefault:"reports"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.TelegramToken != "" && len(cfg.AdminIDs) == 0 {
		return nil, fmt.Errorf("admin notifications enabled but no admin IDs configured")
	}

	return &cfg, nil
}
