package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Upstream      UpstreamConfig      `mapstructure:"upstream"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Card          CardConfig          `mapstructure:"card"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Events        EventsConfig        `mapstructure:"events"`
	Verification  VerificationConfig  `mapstructure:"verification"`
	Session       SessionConfig       `mapstructure:"session"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration   `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig      `mapstructure:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type RateLimitConfig struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

// UpstreamConfig configures the client adapter used for outbound calls
// (verifier to processor).
type UpstreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryAttempts  uint          `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay  time.Duration `mapstructure:"max_retry_delay"`
}

// GatewayConfig selects the provider gateway implementation. The "sim"
// driver injects latency and random failures for load and resilience demos.
type GatewayConfig struct {
	Driver      string        `mapstructure:"driver"` // "static" or "sim"
	Name        string        `mapstructure:"name"`
	FailureRate float64       `mapstructure:"failure_rate"`
	TimeoutRate float64       `mapstructure:"timeout_rate"`
	Latency     time.Duration `mapstructure:"latency"`
}

type CardConfig struct {
	MinLength    int `mapstructure:"min_length"`
	MaxLength    int `mapstructure:"max_length"`
	MinCVVLength int `mapstructure:"min_cvv_length"`
	MaxCVVLength int `mapstructure:"max_cvv_length"`
}

type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // "memory" or "postgres"
	Database DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
	IdempotencyTTL    time.Duration `mapstructure:"idempotency_ttl"`
}

type EventsConfig struct {
	Driver string `mapstructure:"driver"` // "inprocess" or "redis"
}

type VerificationConfig struct {
	ProcessingTimeout time.Duration `mapstructure:"processing_timeout"`
	AmountToleranceC  int64         `mapstructure:"amount_tolerance_cents"`
	AutoVerify        bool          `mapstructure:"auto_verify"`
	ConsumerGroup     string        `mapstructure:"consumer_group"`
	BatchSize         int64         `mapstructure:"batch_size"`
	BlockDuration     time.Duration `mapstructure:"block_duration"`
	LockTTL           time.Duration `mapstructure:"lock_ttl"`
	ReconcileWorkers  int           `mapstructure:"reconcile_workers"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("PAYFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/payflow")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Server.RateLimit.Max <= 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit.max must be positive"))
	}
	if c.Server.RateLimit.Window <= 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit.window must be positive"))
	}
	if c.Upstream.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("upstream.retry_attempts must be at least 1"))
	}
	switch c.Gateway.Driver {
	case "static", "sim":
	default:
		errs = append(errs, fmt.Errorf("gateway.driver must be static or sim, got %q", c.Gateway.Driver))
	}
	if c.Gateway.FailureRate < 0 || c.Gateway.FailureRate > 1 {
		errs = append(errs, fmt.Errorf("gateway.failure_rate must be between 0 and 1"))
	}
	if c.Gateway.TimeoutRate < 0 || c.Gateway.TimeoutRate > 1 {
		errs = append(errs, fmt.Errorf("gateway.timeout_rate must be between 0 and 1"))
	}
	if c.Card.MinLength > c.Card.MaxLength {
		errs = append(errs, fmt.Errorf("card.min_length must not exceed card.max_length"))
	}
	if c.Card.MinCVVLength > c.Card.MaxCVVLength {
		errs = append(errs, fmt.Errorf("card.min_cvv_length must not exceed card.max_cvv_length"))
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.Database.Host == "" {
			errs = append(errs, fmt.Errorf("storage.database.host required for postgres driver"))
		}
		if c.Storage.Database.Port <= 0 {
			errs = append(errs, fmt.Errorf("storage.database.port must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be memory or postgres, got %q", c.Storage.Driver))
	}

	switch c.Events.Driver {
	case "inprocess":
	case "redis":
		if !c.Redis.Enabled {
			errs = append(errs, fmt.Errorf("events.driver redis requires redis.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("events.driver must be inprocess or redis, got %q", c.Events.Driver))
	}

	if c.Redis.Enabled && c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Verification.ProcessingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("verification.processing_timeout must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("session.ttl must be positive"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)
	v.SetDefault("server.rate_limit.max", 120)
	v.SetDefault("server.rate_limit.window", "1m")

	// Upstream client defaults
	v.SetDefault("upstream.base_url", "http://localhost:8080")
	v.SetDefault("upstream.request_timeout", "30s")
	v.SetDefault("upstream.retry_attempts", 3)
	v.SetDefault("upstream.retry_delay", "500ms")
	v.SetDefault("upstream.max_retry_delay", "10s")

	// Gateway defaults
	v.SetDefault("gateway.driver", "static")
	v.SetDefault("gateway.name", "pf")
	v.SetDefault("gateway.failure_rate", 0.0)
	v.SetDefault("gateway.timeout_rate", 0.0)
	v.SetDefault("gateway.latency", "100ms")

	// Card validation defaults
	v.SetDefault("card.min_length", 13)
	v.SetDefault("card.max_length", 19)
	v.SetDefault("card.min_cvv_length", 3)
	v.SetDefault("card.max_cvv_length", 4)

	// Storage defaults
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.database.host", "localhost")
	v.SetDefault("storage.database.port", 5432)
	v.SetDefault("storage.database.user", "payflow")
	v.SetDefault("storage.database.database", "payflow")
	v.SetDefault("storage.database.max_connections", 25)
	v.SetDefault("storage.database.min_connections", 5)
	v.SetDefault("storage.database.conn_max_lifetime", "1h")
	v.SetDefault("storage.database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")
	v.SetDefault("redis.idempotency_ttl", "24h")

	// Events defaults
	v.SetDefault("events.driver", "inprocess")

	// Verification defaults
	v.SetDefault("verification.processing_timeout", "60s")
	v.SetDefault("verification.amount_tolerance_cents", 1)
	v.SetDefault("verification.auto_verify", false)
	v.SetDefault("verification.consumer_group", "verifiers")
	v.SetDefault("verification.batch_size", 10)
	v.SetDefault("verification.block_duration", "1s")
	v.SetDefault("verification.lock_ttl", "30s")
	v.SetDefault("verification.reconcile_workers", 4)

	// Session defaults
	v.SetDefault("session.ttl", "15m")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Instance ID
	v.SetDefault("instance_id", "payflow-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
