// Package config provides configuration management for pgcache.
// It supports loading configuration from YAML files, JSON files, and environment variables
// with automatic validation and default value application.
//
// A loaded Config is treated as an immutable value: components receive the
// section they need at construction and never read process-wide defaults.
//
// Example usage:
//
//	cfg, err := config.Load("pgcache.yaml", "PGCACHE")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Or panic on error:
//	cfg := config.MustLoad("pgcache.yaml", "PGCACHE")
package config

import (
	"time"
)

// Cache backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config represents the complete configuration for a pgcache process.
type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Server   ServerConfig   `mapstructure:"server"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Client   ClientConfig   `mapstructure:"client"`
}

// ServiceConfig contains general service information.
type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"` // development, staging, production
}

// ServerConfig contains the HTTP API server configuration.
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxValueBytes   int64         `mapstructure:"max_value_bytes"`
}

// CacheConfig describes one cache instance: where its entries live and how
// expiration is extended.
type CacheConfig struct {
	// Backend selects the store: "postgres", "redis" or "memory".
	Backend string `mapstructure:"backend"`

	// ConnectionString is the primary PostgreSQL connection string.
	ConnectionString string `mapstructure:"connection_string"`

	// ReadConnectionString optionally routes reads to a separate target.
	ReadConnectionString string `mapstructure:"read_connection_string"`

	// WriteConnectionString optionally routes writes, refreshes and
	// provisioning to a separate target.
	WriteConnectionString string `mapstructure:"write_connection_string"`

	// SchemaName is the schema holding the cache table. Default: "public".
	SchemaName string `mapstructure:"schema_name"`

	// TableName is the cache table name. Default: "Cache".
	TableName string `mapstructure:"table_name"`

	// DefaultSlidingExpiration is the window applied by Refresh. Default: 20 minutes.
	DefaultSlidingExpiration time.Duration `mapstructure:"default_sliding_expiration"`

	// ExpiredItemsDeletionInterval enables the expired-entry sweeper when positive.
	ExpiredItemsDeletionInterval time.Duration `mapstructure:"expired_items_deletion_interval"`
}

// DatabaseConfig contains PostgreSQL connection pool limits shared by the
// read and write pools.
type DatabaseConfig struct {
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig contains Redis configuration for the redis backend.
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

// LogConfig contains structured logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      int    `mapstructure:"port"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"` // Metric prefix
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Endpoint     string        `mapstructure:"endpoint"`     // OTLP endpoint (e.g., "localhost:4317")
	SampleRate   float64       `mapstructure:"sample_rate"`  // 0.0 to 1.0
	ServiceName  string        `mapstructure:"service_name"` // Override service name for traces
	ExportMode   string        `mapstructure:"export_mode"`  // "grpc" or "http"
	Insecure     bool          `mapstructure:"insecure"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// RetryConfig controls how the binary retries opening its connections at startup.
// Cache operations themselves are never retried.
type RetryConfig struct {
	MaxAttempts  uint          `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// AuthConfig protects the cache routes of the HTTP API. Health and metrics
// routes stay open. With no API keys and no JWT public key the API is open.
type AuthConfig struct {
	APIKeys          []string `mapstructure:"api_keys"`
	JWTPublicKeyFile string   `mapstructure:"jwt_public_key_file"` // PEM, PKIX or PKCS#1 RSA key
	JWTIssuer        string   `mapstructure:"jwt_issuer"`
	JWTAudience      string   `mapstructure:"jwt_audience"`
}

// Enabled reports whether any credential source is configured.
func (a AuthConfig) Enabled() bool {
	return len(a.APIKeys) > 0 || a.JWTPublicKeyFile != ""
}

// ClientConfig configures the HTTP API client used by the CLI in remote mode.
type ClientConfig struct {
	ServerURL          string        `mapstructure:"server_url"`
	Token              string        `mapstructure:"token"`
	Timeout            time.Duration `mapstructure:"timeout"`
	RetryCount         int           `mapstructure:"retry_count"`
	RetryWaitTime      time.Duration `mapstructure:"retry_wait_time"`
	RetryMaxWaitTime   time.Duration `mapstructure:"retry_max_wait_time"`
	RateLimitPerSecond float64       `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
}
