package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap/zapcore"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port              string `env:"PORT" envDefault:"8080"`
	AuthToken         string `env:"AUTH_TOKEN"`
	DBURL             string `env:"DB_URL"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	RunMigrations     bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	ReadTimeoutSecs   int    `env:"SERVER_READ_TIMEOUT" envDefault:"15"`
	WriteTimeoutSecs  int    `env:"SERVER_WRITE_TIMEOUT" envDefault:"15"`
	IdleTimeoutSecs   int    `env:"SERVER_IDLE_TIMEOUT" envDefault:"60"`
	DBMaxConns        int    `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns        int    `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxIdleSecs     int    `env:"DB_MAX_CONN_IDLE_SECS" envDefault:"300"`
	DBMaxLifeSecs     int    `env:"DB_MAX_CONN_LIFETIME_SECS" envDefault:"3600"`
	DBConnTimeoutSecs int    `env:"DB_CONN_TIMEOUT_SECS" envDefault:"10"`
	DBStatementCache  int    `env:"DB_STATEMENT_CACHE_CAPACITY" envDefault:"256"` // 0 disables the cache

	Reviews Reviews
}

// Reviews holds the defaults applied when callers omit review parameters.
type Reviews struct {
	// DefaultDepartment is stored on reviews created without a department and
	// used by department-scoped queries that do not name one.
	DefaultDepartment string `env:"REVIEWS_DEFAULT_DEPARTMENT" envDefault:"default"`
	// DefaultApproved is the approval filter used when a request does not set one.
	DefaultApproved bool `env:"REVIEWS_DEFAULT_APPROVED" envDefault:"true"`
	// AutoApprove stores new reviews as already approved.
	AutoApprove bool `env:"REVIEWS_AUTO_APPROVE" envDefault:"false"`
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Reviews.DefaultDepartment = strings.TrimSpace(cfg.Reviews.DefaultDepartment)

	if cfg.AuthToken == "" {
		return Config{}, fmt.Errorf("AUTH_TOKEN is required")
	}
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if cfg.Reviews.DefaultDepartment == "" {
		return Config{}, fmt.Errorf("REVIEWS_DEFAULT_DEPARTMENT cannot be empty")
	}
	if len(cfg.Reviews.DefaultDepartment) > 100 {
		return Config{}, fmt.Errorf("REVIEWS_DEFAULT_DEPARTMENT must be at most 100 characters")
	}

	return cfg, nil
}
