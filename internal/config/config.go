// Package config загружает конфигурацию сервиса из TOML-файла
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvConfigPath переменная окружения с путём к конфигу (перекрывает флаг)
const EnvConfigPath = "CONFIG_PATH"

// ErrInvalidConfig возвращается при некорректных значениях конфигурации
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Драйверы локального хранилища очереди
const (
	StorageDriverBadger = "badger"
	StorageDriverSQLite = "sqlite"
	StorageDriverMemory = "memory"
)

// Config корневая структура конфигурации
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Database     DatabaseConfig     `toml:"database"`
	Logs         LogsConfig         `toml:"logs"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Tracing      TracingConfig      `toml:"tracing"`
	Storage      StorageConfig      `toml:"storage"`
	SaveQueue    SaveQueueConfig    `toml:"save_queue"`
	Connectivity ConnectivityConfig `toml:"connectivity"`
}

// ServerConfig настройки HTTP сервера (таймауты в секундах)
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig настройки удалённого хранилища документов (PostgreSQL)
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// LogsConfig настройки логирования
type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// MetricsConfig настройки prometheus
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// TracingConfig настройки OpenTelemetry
type TracingConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
}

// StorageConfig локальное долговременное хранилище очереди
type StorageConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
	Key    string `toml:"key"`
}

// SaveQueueConfig параметры менеджера сохранений
type SaveQueueConfig struct {
	MaxRetries         int     `toml:"max_retries"`
	BaseDelayMs        int     `toml:"base_delay_ms"`
	MaxDelayMs         int     `toml:"max_delay_ms"`
	Jitter             float64 `toml:"jitter"`
	DrainIntervalSec   int     `toml:"drain_interval_sec"`
	InterRecordDelayMs int     `toml:"inter_record_delay_ms"`
	AttemptTimeoutSec  int     `toml:"attempt_timeout_sec"`
}

func (c SaveQueueConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

func (c SaveQueueConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMs) * time.Millisecond
}

func (c SaveQueueConfig) DrainInterval() time.Duration {
	return time.Duration(c.DrainIntervalSec) * time.Second
}

func (c SaveQueueConfig) InterRecordDelay() time.Duration {
	return time.Duration(c.InterRecordDelayMs) * time.Millisecond
}

func (c SaveQueueConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSec) * time.Second
}

// ConnectivityConfig проверка доступности бэкенда
// Если HealthURL пуст, доступность проверяется ping'ом БД
type ConnectivityConfig struct {
	HealthURL            string `toml:"health_url"`
	HeartbeatIntervalSec int    `toml:"heartbeat_interval_sec"`
	HeartbeatTimeoutSec  int    `toml:"heartbeat_timeout_sec"`
}

func (c ConnectivityConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalSec) * time.Second
}

func (c ConnectivityConfig) HeartbeatTimeout() time.Duration {
	return time.Duration(c.HeartbeatTimeoutSec) * time.Second
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8085,
			ReadTimeout:     15,
			WriteTimeout:    15,
			IdleTimeout:     60,
			ShutdownTimeout: 10,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logs: LogsConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Path:        "/metrics",
			ServiceName: "smc-savesync",
		},
		Tracing: TracingConfig{
			ServiceName: "smc-savesync",
		},
		Storage: StorageConfig{
			Driver: StorageDriverBadger,
			Path:   "./data/savequeue",
			Key:    "smc_pending_saves",
		},
		SaveQueue: SaveQueueConfig{
			MaxRetries:         5,
			BaseDelayMs:        1000,
			MaxDelayMs:         300000,
			DrainIntervalSec:   30,
			InterRecordDelayMs: 250,
			AttemptTimeoutSec:  15,
		},
		Connectivity: ConnectivityConfig{
			HeartbeatIntervalSec: 10,
			HeartbeatTimeoutSec:  3,
		},
	}
}

// Load читает конфигурацию из файла
// Отсутствующие поля заполняются значениями по умолчанию
// Если задана переменная CONFIG_PATH, используется она
func Load(path string) (*Config, error) {
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		path = envPath
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет значения конфигурации
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("%w: server.http_port=%d", ErrInvalidConfig, c.Server.HTTPPort)
	}

	switch c.Storage.Driver {
	case StorageDriverBadger, StorageDriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path is required for driver %q", ErrInvalidConfig, c.Storage.Driver)
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("%w: storage.driver=%q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Storage.Key == "" {
		return fmt.Errorf("%w: storage.key is empty", ErrInvalidConfig)
	}

	q := c.SaveQueue
	if q.MaxRetries < 1 {
		return fmt.Errorf("%w: save_queue.max_retries=%d", ErrInvalidConfig, q.MaxRetries)
	}
	if q.BaseDelayMs <= 0 || q.MaxDelayMs < q.BaseDelayMs {
		return fmt.Errorf("%w: save_queue base_delay_ms=%d max_delay_ms=%d", ErrInvalidConfig, q.BaseDelayMs, q.MaxDelayMs)
	}
	if q.Jitter < 0 || q.Jitter >= 1 {
		return fmt.Errorf("%w: save_queue.jitter=%v must be in [0, 1)", ErrInvalidConfig, q.Jitter)
	}
	if q.DrainIntervalSec <= 0 {
		return fmt.Errorf("%w: save_queue.drain_interval_sec=%d", ErrInvalidConfig, q.DrainIntervalSec)
	}
	if q.InterRecordDelayMs < 0 || q.AttemptTimeoutSec < 0 {
		return fmt.Errorf("%w: save_queue delays must not be negative", ErrInvalidConfig)
	}

	if c.Connectivity.HeartbeatIntervalSec <= 0 {
		return fmt.Errorf("%w: connectivity.heartbeat_interval_sec=%d", ErrInvalidConfig, c.Connectivity.HeartbeatIntervalSec)
	}

	return nil
}
