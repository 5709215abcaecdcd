package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Redis backs the dashboard cache only; leave empty to read straight
	// from Postgres.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Catalog service used to enrich item listings with product details.
	CatalogBaseURL string        `env:"CATALOG_BASE_URL"`
	CatalogTimeout time.Duration `env:"CATALOG_TIMEOUT" envDefault:"2s"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`

	// HoldTTL is the reservation hold window; unconfirmed sessions are
	// released after it elapses.
	HoldTTL       time.Duration `env:"HOLD_TTL" envDefault:"10m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`

	DashboardCacheTTL time.Duration `env:"DASHBOARD_CACHE_TTL" envDefault:"5s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment, after loading a local .env
// file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
