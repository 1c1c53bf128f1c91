package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	commoncfg "sensors-api/common/config"

	"gopkg.in/yaml.v3"
)

// Event sinks.
const (
	SinkNone  = "none"
	SinkRedis = "redis"
	SinkMQTT  = "mqtt"
)

// Config is the sensors-api configuration.
type Config struct {
	HTTP struct {
		Addr         string `yaml:"addr"`
		MaxBodyBytes int64  `yaml:"max_body_bytes"`
	} `yaml:"http"`
	DBEnabled bool                     `yaml:"db_enabled"`
	Database  commoncfg.DatabaseConfig `yaml:"database"`
	Store     StoreConfig              `yaml:"store"`
	Telemetry TelemetryConfig          `yaml:"telemetry"`
	// ListConcurrency bounds telemetry fetches in flight for one listing.
	ListConcurrency int                   `yaml:"list_concurrency"`
	Events          EventsConfig          `yaml:"events"`
	Redis           commoncfg.RedisConfig `yaml:"redis"`
	MQTT            commoncfg.MQTTConfig  `yaml:"mqtt"`
	Log             struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

type StoreConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	// Readings keeps value, unit and status columns in the sensors table.
	Readings bool `yaml:"readings"`
}

// TelemetryConfig points at the state monitoring service.
type TelemetryConfig struct {
	BaseURL    string        `yaml:"base_url"`
	DataPath   string        `yaml:"data_path"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retry_count"`
}

type EventsConfig struct {
	Sink         string `yaml:"sink"` // none, redis or mqtt
	Stream       string `yaml:"stream"`
	StreamMaxLen int64  `yaml:"stream_max_len"`
	Topic        string `yaml:"topic"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":8081"
	cfg.HTTP.MaxBodyBytes = 100 * 1024

	cfg.DBEnabled = true
	cfg.Database = commoncfg.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "postgres",
		Database:        "sensors",
		SSLMode:         "disable",
		MaxConns:        10,
		MaxIdle:         2,
		ConnMaxLifetime: 30 * time.Minute,
	}
	cfg.Store = StoreConfig{Timeout: 5 * time.Second, Readings: true}

	cfg.Telemetry = TelemetryConfig{
		BaseURL:  "http://statemon:7676",
		DataPath: "/api/v1/sensor/data",
		Timeout:  3 * time.Second,
	}
	cfg.ListConcurrency = 8

	cfg.Events = EventsConfig{
		Sink:         SinkNone,
		Stream:       "sensors:events",
		StreamMaxLen: 10000,
		Topic:        "sensors/events",
	}
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.MQTT = commoncfg.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "sensors-api",
		QoS:      1,
	}

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// Load builds the configuration from defaults, then the YAML file named by
// SENSORS_CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("SENSORS_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.MaxBodyBytes = int64(parseInt(os.Getenv("HTTP_MAX_BODY_BYTES"), int(c.HTTP.MaxBodyBytes)))

	c.DBEnabled = parseBool(os.Getenv("DB_ENABLED"), c.DBEnabled)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.LoadFromEnv("DB")
	c.Database.ConnMaxLifetime = parseDuration(os.Getenv("DB_CONN_MAX_LIFETIME"), c.Database.ConnMaxLifetime)

	c.Store.Timeout = parseDuration(os.Getenv("STORE_TIMEOUT"), c.Store.Timeout)
	c.Store.Readings = parseBool(os.Getenv("STORE_READINGS"), c.Store.Readings)

	c.Telemetry.BaseURL = getEnv("STATEMON_API_URL", c.Telemetry.BaseURL)
	c.Telemetry.DataPath = getEnv("STATEMON_DATA_PATH", c.Telemetry.DataPath)
	c.Telemetry.Timeout = parseDuration(os.Getenv("TELEMETRY_TIMEOUT"), c.Telemetry.Timeout)
	c.Telemetry.RetryCount = parseInt(os.Getenv("TELEMETRY_RETRY_COUNT"), c.Telemetry.RetryCount)
	c.ListConcurrency = parseInt(os.Getenv("LIST_CONCURRENCY"), c.ListConcurrency)

	c.Events.Sink = getEnv("EVENTS_SINK", c.Events.Sink)
	c.Events.Stream = getEnv("EVENTS_STREAM", c.Events.Stream)
	c.Events.StreamMaxLen = int64(parseInt(os.Getenv("EVENTS_STREAM_MAXLEN"), int(c.Events.StreamMaxLen)))
	c.Events.Topic = getEnv("EVENTS_TOPIC", c.Events.Topic)

	c.Redis.LoadFromEnv("REDIS")
	c.MQTT.LoadFromEnv("MQTT")
	c.MQTT.QoS = byte(parseInt(os.Getenv("MQTT_QOS"), int(c.MQTT.QoS)))

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Addr == "":
		return fmt.Errorf("HTTP_ADDR must not be empty")
	case c.HTTP.MaxBodyBytes <= 0:
		return fmt.Errorf("HTTP_MAX_BODY_BYTES must be positive, got %d", c.HTTP.MaxBodyBytes)
	case c.Store.Timeout <= 0:
		return fmt.Errorf("STORE_TIMEOUT must be positive, got %s", c.Store.Timeout)
	case c.Telemetry.BaseURL == "":
		return fmt.Errorf("STATEMON_API_URL must not be empty")
	case c.Telemetry.Timeout <= 0:
		return fmt.Errorf("TELEMETRY_TIMEOUT must be positive, got %s", c.Telemetry.Timeout)
	case c.Telemetry.RetryCount < 0:
		return fmt.Errorf("TELEMETRY_RETRY_COUNT must not be negative, got %d", c.Telemetry.RetryCount)
	case c.ListConcurrency <= 0:
		return fmt.Errorf("LIST_CONCURRENCY must be positive, got %d", c.ListConcurrency)
	case c.MQTT.QoS > 2:
		return fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}

	switch c.Events.Sink {
	case SinkNone, SinkRedis, SinkMQTT:
	default:
		return fmt.Errorf("EVENTS_SINK must be one of none, redis, mqtt, got %q", c.Events.Sink)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Log.Format)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
