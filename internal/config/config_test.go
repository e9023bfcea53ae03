package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     3306,
		Username: "orderdesk",
		Password: "secret",
		DBName:   "orderdesk",
	}

	dsn := cfg.GetDSN()

	assert.Contains(t, dsn, "orderdesk:secret@tcp(localhost:3306)/orderdesk")
	assert.Contains(t, dsn, "parseTime=True")
	// matched-rows semantics: updating a field to its current value
	// must not look like a missing row
	assert.Contains(t, dsn, "clientFoundRows=true")
}

func TestGetAddr_Defaults(t *testing.T) {
	cfg := ServerConfig{}
	assert.Equal(t, "0.0.0.0:8080", cfg.GetAddr())

	cfg = ServerConfig{Host: "127.0.0.1", Port: 9000}
	assert.Equal(t, "127.0.0.1:9000", cfg.GetAddr())
}

func writeTestConfig(t *testing.T) string {
	t.Helper()

	content := `
server:
  host: 127.0.0.1
  port: 9090
  mode: test
database:
  host: localhost
  port: 3306
  username: orderdesk
  password: secret
  dbname: orderdesk
cache:
  enabled: true
  key_prefix: "test:"
  ttl: 1m
auth:
  jwt_secret: test-secret
  issuer: idp.test
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeTestConfig(t)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Mode)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Same(t, cfg, GlobalConfig)
}

func TestLoadConfig_RegistersWatchSource(t *testing.T) {
	path := writeTestConfig(t)

	_, err := LoadConfig(path)
	require.NoError(t, err)

	// the watcher runs on the instance that read the file
	require.NotNil(t, loadedViper)
	assert.Equal(t, path, loadedViper.ConfigFileUsed())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeTestConfig(t)
	t.Setenv("ORDERDESK_SERVER_PORT", "7070")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
}
