package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	MQTT       MQTTConfig
	Control    ControlConfig
	Monitoring MonitoringConfig
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	APIToken        string        `mapstructure:"api_token"`
}

type DatabaseConfig struct {
	TimescaleDB PostgresConfig `mapstructure:"timescaledb"`
	AppDB       PostgresConfig `mapstructure:"postgres_app"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MQTTConfig struct {
	BrokerURL     string `mapstructure:"broker_url"`
	ClientID      string `mapstructure:"client_id"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	Subscriptions string `mapstructure:"subscriptions"`
	CommandTopic  string `mapstructure:"command_topic"`
}

// ControlConfig tunes the telemetry-to-actuation loop.
type ControlConfig struct {
	OfflineTimeout      time.Duration `mapstructure:"offline_timeout"`
	DisableTimers       bool          `mapstructure:"disable_timers"`
	DedupeTTL           time.Duration `mapstructure:"dedupe_ttl"`
	ThrottleWindow      time.Duration `mapstructure:"throttle_window"`
	AlertDebounce       time.Duration `mapstructure:"alert_debounce"`
	StaleReadingMaxAge  time.Duration `mapstructure:"stale_reading_max_age"`
	CommandRetryEvery   time.Duration `mapstructure:"command_retry_every"`
	CommandStaleAfter   time.Duration `mapstructure:"command_stale_after"`
	AutoControlInterval time.Duration `mapstructure:"auto_control_interval"`
	RetentionMaxAge     time.Duration `mapstructure:"retention_max_age"`
	PruneInterval       time.Duration `mapstructure:"prune_interval"`
	FloatInterlock      bool          `mapstructure:"float_interlock"`
	DeviceDirectURL     string        `mapstructure:"device_direct_url"`
	DeviceDirectTimeout time.Duration `mapstructure:"device_direct_timeout"`
}

type MonitoringConfig struct {
	LogLevel           string `mapstructure:"log_level"`
	PrometheusEndpoint string `mapstructure:"prometheus_endpoint"`
	LokiEndpoint       string `mapstructure:"loki_endpoint"`
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetEnvPrefix("VERMI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Load config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.timescaledb.sslmode", "disable")
	viper.SetDefault("database.postgres_app.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.db", 0)

	// MQTT defaults
	viper.SetDefault("mqtt.subscriptions", "vermilinks/#")
	viper.SetDefault("mqtt.command_topic", "vermilinks/%s/command")

	// Control loop defaults
	viper.SetDefault("control.offline_timeout", "60s")
	viper.SetDefault("control.dedupe_ttl", "30s")
	viper.SetDefault("control.throttle_window", "5s")
	viper.SetDefault("control.alert_debounce", "5m")
	viper.SetDefault("control.stale_reading_max_age", "15m")
	viper.SetDefault("control.command_retry_every", "5s")
	viper.SetDefault("control.command_stale_after", "15s")
	viper.SetDefault("control.auto_control_interval", "10s")
	viper.SetDefault("control.retention_max_age", "720h")
	viper.SetDefault("control.prune_interval", "1h")
	viper.SetDefault("control.device_direct_timeout", "5s")

	// Monitoring defaults
	viper.SetDefault("monitoring.log_level", "info")
	viper.SetDefault("monitoring.prometheus_endpoint", "http://localhost:9090")
	viper.SetDefault("monitoring.loki_endpoint", "http://localhost:3100")
}

func validateConfig(config *Config) error {
	if config.Database.TimescaleDB.Host == "" {
		return fmt.Errorf("timescaledb host is required")
	}
	if config.Database.AppDB.Host == "" {
		return fmt.Errorf("postgres app host is required")
	}
	// A staleness window under 2s would make the retry loop race in-flight acks.
	if config.Control.CommandStaleAfter < 2*time.Second {
		config.Control.CommandStaleAfter = 2 * time.Second
	}
	return nil
}
