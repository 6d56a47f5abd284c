package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/storefront/internal/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/proxy"
)

const (
	// StorageDriverMemory хранит данные в памяти процесса.
	StorageDriverMemory = "memory"
	// StorageDriverPostgres хранит данные в PostgreSQL.
	StorageDriverPostgres = "postgres"
	// StorageDriverSQLite хранит корзину в локальном файле SQLite (только CLI).
	StorageDriverSQLite = "sqlite"

	// EnvConfigPath указывает путь к YAML-файлу конфигурации.
	EnvConfigPath = "STOREFRONT_CONFIG"
)

// Config описывает настройки checkout proxy и CLI корзины.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	TargetURL       string        `yaml:"target_url"`
	AllowedOrigin   string        `yaml:"allowed_origin"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`

	StorageDriver       string `yaml:"storage_driver"`
	PostgresDSN         string `yaml:"postgres_dsn"`
	PostgresAutoMigrate bool   `yaml:"postgres_auto_migrate"`

	// KafkaBrokers содержит брокеров через запятую; пустое значение отключает Kafka.
	KafkaBrokers       string        `yaml:"kafka_brokers"`
	OutboxTopic        string        `yaml:"outbox_topic"`
	DLQTopic           string        `yaml:"dlq_topic"`
	OutboxPollInterval time.Duration `yaml:"outbox_poll_interval"`
	OutboxBatchSize    int           `yaml:"outbox_batch_size"`
	OutboxMaxAttempts  int           `yaml:"outbox_max_attempts"`
	OutboxRetryDelay   time.Duration `yaml:"outbox_retry_delay"`
	OutboxMaxPending   int           `yaml:"outbox_max_pending"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`

	Cart CartConfig `yaml:"cart"`
}

// CartConfig описывает настройки CLI корзины.
type CartConfig struct {
	StorageDriver    string `yaml:"storage_driver"`
	SQLitePath       string `yaml:"sqlite_path"`
	Profile          string `yaml:"profile"`
	CheckoutEndpoint string `yaml:"checkout_endpoint"`
	Handle           string `yaml:"handle"`
	Origin           string `yaml:"origin"`
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8081",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		TargetURL:           proxy.DefaultTargetURL,
		AllowedOrigin:       "*",
		UpstreamTimeout:     30 * time.Second,
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		OutboxTopic:         kafka.TopicCheckoutEvents,
		DLQTopic:            kafka.TopicDeadLetterQueue,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    100 * time.Millisecond,
		OutboxMaxPending:    1000,
		ShutdownTimeout:     5 * time.Second,
		LogLevel:            "info",
		Cart: CartConfig{
			StorageDriver:    StorageDriverSQLite,
			SQLitePath:       defaultSQLitePath(),
			Profile:          "default",
			CheckoutEndpoint: "http://localhost:8081",
			Handle:           checkout.DefaultHandle,
			Origin:           "http://localhost:8000",
		},
	}
}

func defaultSQLitePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "storefront.db"
	}
	return filepath.Join(dir, "storefront", "cart.db")
}

// LoadConfig собирает конфигурацию: значения по умолчанию, затем YAML-файл
// (path или STOREFRONT_CONFIG), затем переменные окружения STOREFRONT_*.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv переопределяет поля конфигурации переменными окружения.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	duration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = parsed
	}
	integer := func(key string, dst *int) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = parsed
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = parsed
	}

	str("STOREFRONT_HTTP_ADDR", &cfg.HTTPAddr)
	str("STOREFRONT_GRPC_ADDR", &cfg.GRPCAddr)
	str("STOREFRONT_METRICS_ADDR", &cfg.MetricsAddr)
	str("STOREFRONT_TARGET_URL", &cfg.TargetURL)
	str("STOREFRONT_ALLOWED_ORIGIN", &cfg.AllowedOrigin)
	duration("STOREFRONT_UPSTREAM_TIMEOUT", &cfg.UpstreamTimeout)

	str("STOREFRONT_STORAGE_DRIVER", &cfg.StorageDriver)
	str("STOREFRONT_POSTGRES_DSN", &cfg.PostgresDSN)
	boolean("STOREFRONT_POSTGRES_AUTO_MIGRATE", &cfg.PostgresAutoMigrate)

	str("KAFKA_BROKERS", &cfg.KafkaBrokers)
	str("STOREFRONT_KAFKA_BROKERS", &cfg.KafkaBrokers)
	str("STOREFRONT_OUTBOX_TOPIC", &cfg.OutboxTopic)
	str("STOREFRONT_DLQ_TOPIC", &cfg.DLQTopic)
	duration("STOREFRONT_OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval)
	integer("STOREFRONT_OUTBOX_BATCH_SIZE", &cfg.OutboxBatchSize)
	integer("STOREFRONT_OUTBOX_MAX_ATTEMPTS", &cfg.OutboxMaxAttempts)
	duration("STOREFRONT_OUTBOX_RETRY_DELAY", &cfg.OutboxRetryDelay)
	integer("STOREFRONT_OUTBOX_MAX_PENDING", &cfg.OutboxMaxPending)

	duration("STOREFRONT_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)
	str("STOREFRONT_LOG_LEVEL", &cfg.LogLevel)

	str("STOREFRONT_CART_STORAGE", &cfg.Cart.StorageDriver)
	str("STOREFRONT_CART_SQLITE_PATH", &cfg.Cart.SQLitePath)
	str("STOREFRONT_CART_PROFILE", &cfg.Cart.Profile)
	str("STOREFRONT_CHECKOUT_ENDPOINT", &cfg.Cart.CheckoutEndpoint)
	str("STOREFRONT_CHECKOUT_HANDLE", &cfg.Cart.Handle)
	str("STOREFRONT_ORIGIN", &cfg.Cart.Origin)

	return errors.Join(errs...)
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres storage requires postgres_dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	switch c.Cart.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverSQLite:
		if strings.TrimSpace(c.Cart.SQLitePath) == "" {
			errs = append(errs, errors.New("sqlite cart storage requires sqlite_path"))
		}
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres cart storage requires postgres_dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported cart storage driver %q", c.Cart.StorageDriver))
	}

	if strings.TrimSpace(c.TargetURL) == "" {
		errs = append(errs, errors.New("target_url is required"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("upstream_timeout must be positive"))
	}
	if c.OutboxPollInterval <= 0 {
		errs = append(errs, errors.New("outbox_poll_interval must be positive"))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("outbox_batch_size must be positive"))
	}
	if c.OutboxMaxAttempts <= 0 {
		errs = append(errs, errors.New("outbox_max_attempts must be positive"))
	}
	if c.OutboxRetryDelay < 0 {
		errs = append(errs, errors.New("outbox_retry_delay must not be negative"))
	}
	if c.OutboxMaxPending <= 0 {
		errs = append(errs, errors.New("outbox_max_pending must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Brokers возвращает список Kafka брокеров без пустых элементов.
func (c Config) Brokers() []string {
	return splitBrokers(c.KafkaBrokers)
}
