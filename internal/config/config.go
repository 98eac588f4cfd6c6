// Package config loads runtime configuration from a YAML file with
// environment variable overrides and validates it at startup.
package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultServerPort      = 8060
	defaultServerTimeout   = 30
	defaultDatabasePort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5
	defaultRedisAddress    = "localhost:6379"
	defaultScrapeInterval  = 6 * time.Hour
	defaultRequestTimeout  = 30 * time.Second
	defaultMaxRetries      = 3
	defaultSourcesFile     = "sources.yml"
	defaultSQLiteDSN       = "./data/opportunities.db"
)

// Config holds all runtime configuration for the ingestor.
type Config struct {
	Debug    bool           `env:"APP_DEBUG" yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
}

type ServerConfig struct {
	Host         string        `env:"SERVER_HOST" yaml:"host"`
	Port         int           `env:"SERVER_PORT" yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

// DatabaseConfig selects the storage driver. "postgres" uses the host/port
// credentials; "sqlite" uses DSN and needs no network configuration at all,
// which is what the test suite runs on.
type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER"   yaml:"driver"`
	DSN             string        `env:"DB_DSN"      yaml:"dsn"`
	Host            string        `env:"DB_HOST"     yaml:"host"`
	Port            int           `env:"DB_PORT"     yaml:"port"`
	User            string        `env:"DB_USER"     yaml:"user"`
	Password        string        `env:"DB_PASSWORD" yaml:"password"`
	DBName          string        `env:"DB_NAME"     yaml:"dbname"`
	SSLMode         string        `env:"DB_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection configuration for event publishing.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"        yaml:"address"`
	Password string `env:"REDIS_PASSWORD"       yaml:"password"`
	DB       int    `env:"REDIS_DB"             yaml:"db"`
	Enabled  bool   `env:"REDIS_EVENTS_ENABLED" yaml:"enabled"`
}

// ScrapeConfig controls the ingest worker and scheduler.
type ScrapeConfig struct {
	Interval       time.Duration `env:"SCRAPE_INTERVAL" yaml:"interval"`
	SourcesFile    string        `env:"SOURCES_FILE"    yaml:"sources_file"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	UserAgents     []string      `yaml:"user_agents"`
	ObeyRobots     bool          `env:"OBEY_ROBOTS" yaml:"obey_robots"`
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port must be positive")
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return errors.New("database.host is required")
		}
		if c.Database.Port <= 0 {
			return errors.New("database.port is required and must be positive")
		}
		if c.Database.User == "" {
			return errors.New("database.user is required")
		}
		if c.Database.DBName == "" {
			return errors.New("database.dbname is required")
		}
	case "sqlite":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Scrape.Interval <= 0 {
		return errors.New("scrape.interval must be positive")
	}
	return nil
}

// Load reads the YAML file at path, applies defaults, then environment
// overrides, then validates.
func Load(path string) (*Config, error) {
	cfg, err := loadYAML(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	setDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerTimeout * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerTimeout * time.Second
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	// SQLite needs no credentials, so it is the zero-config default.
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN == "" {
		cfg.Database.DSN = defaultSQLiteDSN
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultDatabasePort
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaultConnMaxLifetime * time.Minute
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Scrape.Interval == 0 {
		cfg.Scrape.Interval = defaultScrapeInterval
	}
	if cfg.Scrape.SourcesFile == "" {
		cfg.Scrape.SourcesFile = defaultSourcesFile
	}
	if cfg.Scrape.RequestTimeout == 0 {
		cfg.Scrape.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Scrape.MaxRetries == 0 {
		cfg.Scrape.MaxRetries = defaultMaxRetries
	}
}
