package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SENSORS_CONFIG_FILE", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.HTTP.Addr)
	assert.Equal(t, int64(102400), cfg.HTTP.MaxBodyBytes)
	assert.True(t, cfg.DBEnabled)
	assert.True(t, cfg.Store.Readings)
	assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "http://statemon:7676", cfg.Telemetry.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Telemetry.Timeout)
	assert.Equal(t, 8, cfg.ListConcurrency)
	assert.Equal(t, SinkNone, cfg.Events.Sink)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SENSORS_CONFIG_FILE", "")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/sensors?sslmode=disable")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("STORE_READINGS", "false")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("STATEMON_API_URL", "http://localhost:7676")
	t.Setenv("TELEMETRY_TIMEOUT", "not-a-duration")
	t.Setenv("LIST_CONCURRENCY", "2")
	t.Setenv("EVENTS_SINK", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, "postgres://u:p@db:5432/sensors?sslmode=disable", cfg.Database.GetDSN())
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.False(t, cfg.Store.Readings)
	assert.Equal(t, 750*time.Millisecond, cfg.Store.Timeout)
	assert.Equal(t, "http://localhost:7676", cfg.Telemetry.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Telemetry.Timeout)
	assert.Equal(t, 2, cfg.ListConcurrency)
	assert.Equal(t, SinkRedis, cfg.Events.Sink)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":7000"
store:
  timeout: 2s
  readings: false
telemetry:
  base_url: http://statemon.internal:7676
  retry_count: 2
events:
  sink: mqtt
  topic: home/sensors
log:
  level: debug
`), 0o600))
	t.Setenv("SENSORS_CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, 2*time.Second, cfg.Store.Timeout)
	assert.False(t, cfg.Store.Readings)
	assert.Equal(t, "http://statemon.internal:7676", cfg.Telemetry.BaseURL)
	assert.Equal(t, 2, cfg.Telemetry.RetryCount)
	assert.Equal(t, SinkMQTT, cfg.Events.Sink)
	assert.Equal(t, "home/sensors", cfg.Events.Topic)
	assert.Equal(t, "warn", cfg.Log.Level)
	// untouched by the file
	assert.Equal(t, int64(102400), cfg.HTTP.MaxBodyBytes)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("SENSORS_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("http: [unclosed"), 0o600))
		t.Setenv("SENSORS_CONFIG_FILE", path)
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("unknown sink", func(t *testing.T) {
		t.Setenv("SENSORS_CONFIG_FILE", "")
		t.Setenv("EVENTS_SINK", "kafka")
		_, err := Load()
		assert.ErrorContains(t, err, "EVENTS_SINK")
	})
	t.Run("zero concurrency", func(t *testing.T) {
		t.Setenv("SENSORS_CONFIG_FILE", "")
		t.Setenv("LIST_CONCURRENCY", "0")
		_, err := Load()
		assert.ErrorContains(t, err, "LIST_CONCURRENCY")
	})
}
