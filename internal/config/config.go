package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds all configuration for the prediction API.
// Values come from an optional YAML file; environment variables always win.
// Secrets (database URL) are only read from the environment.
type Config struct {
	Address string `yaml:"address" env:"API_ADDRESS" env-default:":8000"`
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// CORSOrigins is a comma-separated allow list for browser clients.
	CORSOrigins string `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:"http://localhost:3000"`

	Store StoreConfig `yaml:"store"`
	Risk  RiskConfig  `yaml:"risk"`
}

type StoreConfig struct {
	// Driver is one of sqlite, postgres, file.
	Driver         string `yaml:"driver" env:"STORE_DRIVER" env-default:"sqlite"`
	SQLitePath     string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"data/risk.db"`
	PostgresURL    string `yaml:"-" env:"DATABASE_URL"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations/postgres"`
	ProjectsPath   string `yaml:"projects_path" env:"PROJECTS_PATH" env-default:"data/Gov_project.csv"`
	ReportsPath    string `yaml:"reports_path" env:"REPORTS_PATH" env-default:""`

	IngestTimeout time.Duration `yaml:"ingest_timeout" env:"INGEST_TIMEOUT" env-default:"10s"`
	MaxRetries    uint64        `yaml:"max_retries" env:"INGEST_MAX_RETRIES" env-default:"3"`
}

type RiskConfig struct {
	ParamsPath string `yaml:"params_path" env:"RISK_PARAMS_PATH" env-default:"configs/risk.json"`
	// Matcher is one of box, grid, haversine.
	Matcher string `yaml:"matcher" env:"RISK_MATCHER" env-default:"box"`
	// ReputationProvider is one of mock, list, table.
	ReputationProvider string `yaml:"reputation_provider" env:"REPUTATION_PROVIDER" env-default:"mock"`
	// Blocklist is a comma-separated contractor list for the list provider.
	Blocklist           string `yaml:"blocklist" env:"CONTRACTOR_BLOCKLIST" env-default:""`
	ReputationThreshold int    `yaml:"reputation_threshold" env:"REPUTATION_THRESHOLD" env-default:"50"`
}

// Load reads path if it exists, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	var err error
	if _, statErr := os.Stat(path); path != "" && statErr == nil {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "sqlite", "file":
	case "postgres":
		if c.Store.PostgresURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSOrigins)
}

func (c *RiskConfig) BlocklistNames() []string {
	return splitList(c.Blocklist)
}

// NewLogger builds a JSON production logger, or a console logger for local.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Env == "local" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
