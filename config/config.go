package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Approval  ApprovalConfig  `mapstructure:"approval"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig describes tokens minted by the identity provider.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // trace, debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type LedgerConfig struct {
	MaxRetries         int           `mapstructure:"max_retries"`
	RecentTransactions int           `mapstructure:"recent_transactions"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`
}

type ApprovalConfig struct {
	DefaultExpiry  time.Duration `mapstructure:"default_expiry"`
	MaxExpiry      time.Duration `mapstructure:"max_expiry"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	SweepBatchSize int           `mapstructure:"sweep_batch_size"`
	ExecutionGrace time.Duration `mapstructure:"execution_grace"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
}

type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

type WebhookConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: GVL_ (Group Vault Ledger).
// Nested keys use underscore: GVL_DATABASE_HOST, GVL_APPROVAL_SWEEP_INTERVAL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("GVL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The file is optional; env vars and defaults can carry everything.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", StorageDriverPostgres, StorageDriverMemory, c.Storage.Driver)
	}
	if c.Ledger.MaxRetries < 1 {
		return fmt.Errorf("ledger.max_retries must be at least 1")
	}
	if c.Approval.DefaultExpiry <= 0 || c.Approval.MaxExpiry < c.Approval.DefaultExpiry {
		return fmt.Errorf("approval.default_expiry must be positive and not exceed approval.max_expiry")
	}
	if c.Approval.SweepInterval <= 0 {
		return fmt.Errorf("approval.sweep_interval must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required when webhooks are enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "group_vault")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "1h")
	v.SetDefault("jwt.issuer", "group-vault-idp")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("storage.driver", StorageDriverPostgres)
	v.SetDefault("ledger.max_retries", 3)
	v.SetDefault("ledger.recent_transactions", 20)
	v.SetDefault("ledger.idempotency_ttl", "24h")
	v.SetDefault("approval.default_expiry", "24h")
	v.SetDefault("approval.max_expiry", "168h")
	v.SetDefault("approval.sweep_interval", "30s")
	v.SetDefault("approval.sweep_batch_size", 100)
	v.SetDefault("approval.execution_grace", "2m")
	v.SetDefault("approval.lock_ttl", "25s")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "vault-events")
	v.SetDefault("kafka.client_id", "group-vault")
	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("ratelimit.enabled", true)
}
