package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from a file and environment variables.
// The prefix parameter is used for environment variable names
// (e.g., "PGCACHE" -> PGCACHE_CACHE_CONNECTION_STRING).
// If configPath is empty, only environment variables will be used.
func Load(configPath, envPrefix string) (*Config, error) {
	return LoadWithOverrides(configPath, envPrefix, nil)
}

// LoadWithOverrides is Load with values that take precedence over both the
// file and the environment, such as command line flags. Keys use the dotted
// form of the configuration file (e.g. "client.server_url").
func LoadWithOverrides(configPath, envPrefix string, overrides map[string]interface{}) (*Config, error) {
	v := viper.New()

	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration and panics on error.
func MustLoad(configPath, envPrefix string) *Config {
	cfg, err := Load(configPath, envPrefix)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFromEnv loads configuration only from environment variables (no config file).
func LoadFromEnv(envPrefix string) (*Config, error) {
	return Load("", envPrefix)
}

// bindEnvKeys registers every cache key with viper so AutomaticEnv can fill
// them during Unmarshal even when no config file mentions them.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"service.name", "service.version", "service.env",
		"server.http_port", "server.read_timeout", "server.write_timeout",
		"server.shutdown_timeout", "server.max_header_bytes", "server.max_value_bytes",
		"cache.backend", "cache.connection_string", "cache.read_connection_string",
		"cache.write_connection_string", "cache.schema_name", "cache.table_name",
		"cache.default_sliding_expiration", "cache.expired_items_deletion_interval",
		"database.max_conns", "database.min_conns", "database.max_conn_lifetime",
		"database.max_conn_idle_time", "database.connect_timeout",
		"redis.host", "redis.port", "redis.password", "redis.db", "redis.key_prefix",
		"log.level", "log.format", "log.output",
		"metrics.enabled", "metrics.port", "metrics.path", "metrics.namespace",
		"tracing.enabled", "tracing.endpoint", "tracing.sample_rate", "tracing.export_mode",
		"retry.max_attempts", "retry.initial_delay", "retry.max_delay",
		"auth.api_keys", "auth.jwt_public_key_file", "auth.jwt_issuer", "auth.jwt_audience",
		"client.server_url", "client.token", "client.timeout", "client.retry_count",
		"client.retry_wait_time", "client.retry_max_wait_time",
		"client.rate_limit_per_second", "client.rate_limit_burst",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}
