package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
# test configuration
database:
  host: localhost
  port: 5432
  user: cantina
  password: secret
  database: cantina

rabbitmq:
  host: broker.local
  port: 5672
  user: guest
  password: guest

server:
  port: 8080

catalog:
  ttl_seconds: 45

receipt:
  venue: "LA CANTINA"
  encoding: latin-1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "cantina", cfg.Database.Database)
	assert.Equal(t, "broker.local", cfg.RabbitMQ.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 45, cfg.Catalog.TTLSeconds)
	assert.Equal(t, "LA CANTINA", cfg.Receipt.Venue)
	assert.Equal(t, "latin-1", cfg.Receipt.Encoding)
	assert.True(t, cfg.EventsEnabled())
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  port: 5432
  user: cantina
  password: secret
  database: cantina
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Catalog.TTLSeconds)
	assert.Equal(t, "utf-8", cfg.Receipt.Encoding)
	assert.False(t, cfg.EventsEnabled(), "no broker host means events disabled")
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  flavor: espresso
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown database key")
}

func TestLoad_InvalidTTL(t *testing.T) {
	path := writeConfig(t, `
catalog:
  ttl_seconds: -5
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestDatabaseURL(t *testing.T) {
	cfg := defaults()
	cfg.Database = DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Database: "cantina",
	}
	assert.Equal(t, "postgres://u:p@db:5432/cantina?sslmode=disable", cfg.DatabaseURL())
}
