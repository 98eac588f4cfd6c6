package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, defaultServerPort, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, defaultSQLiteDSN, cfg.Database.DSN)
	assert.Equal(t, defaultDatabasePort, cfg.Database.Port)
	assert.Equal(t, 6*time.Hour, cfg.Scrape.Interval)
	assert.Equal(t, "sources.yml", cfg.Scrape.SourcesFile)
	assert.Equal(t, 3, cfg.Scrape.MaxRetries)
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
debug: true
server:
  port: 9090
database:
  driver: sqlite
  dsn: ":memory:"
scrape:
  interval: 2h
  max_retries: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
	assert.Equal(t, 2*time.Hour, cfg.Scrape.Interval)
	assert.Equal(t, 5, cfg.Scrape.MaxRetries)
}

func TestEnvOverridesWin(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
database:
  driver: sqlite
  dsn: "./file.db"
`)

	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("DB_DSN", ":memory:")
	t.Setenv("SCRAPE_INTERVAL", "90m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("APP_DEBUG", "yes")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
	assert.Equal(t, 90*time.Minute, cfg.Scrape.Interval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Debug)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Server.Port = 8060
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = ":memory:"
		cfg.Scrape.Interval = time.Hour
		return cfg
	}

	t.Run("valid sqlite", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("sqlite needs dsn", func(t *testing.T) {
		cfg := base()
		cfg.Database.DSN = ""
		assert.ErrorContains(t, cfg.Validate(), "dsn is required")
	})

	t.Run("postgres needs credentials", func(t *testing.T) {
		cfg := base()
		cfg.Database.Driver = "postgres"
		assert.ErrorContains(t, cfg.Validate(), "database.host")

		cfg.Database.Host = "localhost"
		cfg.Database.Port = 5432
		cfg.Database.User = "ingestor"
		cfg.Database.DBName = "opportunities"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base()
		cfg.Database.Driver = "mysql"
		assert.ErrorContains(t, cfg.Validate(), "postgres or sqlite")
	})

	t.Run("interval must be positive", func(t *testing.T) {
		cfg := base()
		cfg.Scrape.Interval = 0
		assert.ErrorContains(t, cfg.Validate(), "interval")
	})
}

func TestPath(t *testing.T) {
	assert.Equal(t, "config.yml", Path("config.yml"))
	t.Setenv("CONFIG_PATH", "/etc/ingestor/config.yml")
	assert.Equal(t, "/etc/ingestor/config.yml", Path("config.yml"))
}
