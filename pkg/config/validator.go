package config

import (
	"fmt"
	"time"
)

// Validate validates the configuration and returns an error if any required fields are missing
// or have invalid values.
//
// A configured client.server_url selects remote mode, where no store is opened
// locally and the store settings are not checked.
func Validate(cfg *Config) error {
	if cfg.Client.ServerURL == "" {
		if err := validateStore(cfg); err != nil {
			return err
		}
	}

	if cfg.Cache.DefaultSlidingExpiration <= 0 {
		return fmt.Errorf("cache.default_sliding_expiration must be positive")
	}
	if cfg.Cache.ExpiredItemsDeletionInterval < 0 {
		return fmt.Errorf("cache.expired_items_deletion_interval must not be negative")
	}

	if cfg.Database.MinConns > cfg.Database.MaxConns {
		return fmt.Errorf("database.min_conns must not exceed database.max_conns")
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
		}
		if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0")
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		return fmt.Errorf("metrics.port is required when metrics are enabled")
	}

	for _, key := range cfg.Auth.APIKeys {
		if key == "" {
			return fmt.Errorf("auth.api_keys must not contain empty keys")
		}
	}
	if cfg.Auth.JWTPublicKeyFile == "" && (cfg.Auth.JWTIssuer != "" || cfg.Auth.JWTAudience != "") {
		return fmt.Errorf("auth.jwt_public_key_file is required when a JWT issuer or audience is set")
	}

	if cfg.Client.RetryCount < 0 {
		return fmt.Errorf("client.retry_count must not be negative")
	}
	if cfg.Client.RateLimitPerSecond < 0 {
		return fmt.Errorf("client.rate_limit_per_second must not be negative")
	}

	return nil
}

func validateStore(cfg *Config) error {
	switch cfg.Cache.Backend {
	case BackendPostgres:
		if _, _, err := cfg.Cache.Targets(); err != nil {
			return err
		}
		if cfg.Cache.SchemaName == "" {
			return fmt.Errorf("cache.schema_name is required")
		}
		if cfg.Cache.TableName == "" {
			return fmt.Errorf("cache.table_name is required")
		}
	case BackendRedis:
		if cfg.Redis.Host == "" {
			return fmt.Errorf("redis.host is required when cache.backend is redis")
		}
		if cfg.Redis.Port == 0 {
			return fmt.Errorf("redis.port is required when cache.backend is redis")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("cache.backend must be one of postgres, redis, memory (got %q)", cfg.Cache.Backend)
	}
	return nil
}

// applyDefaults applies default values to the configuration where values are not set.
func applyDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "pgcache"
	}
	if cfg.Service.Env == "" {
		cfg.Service.Env = "development"
	}

	// Server defaults
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20 // 1 MB
	}
	if cfg.Server.MaxValueBytes == 0 {
		cfg.Server.MaxValueBytes = 8 << 20 // 8 MB
	}

	// Cache defaults
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = BackendPostgres
	}
	if cfg.Cache.SchemaName == "" {
		cfg.Cache.SchemaName = "public"
	}
	if cfg.Cache.TableName == "" {
		cfg.Cache.TableName = "Cache"
	}
	if cfg.Cache.DefaultSlidingExpiration == 0 {
		cfg.Cache.DefaultSlidingExpiration = 20 * time.Minute
	}

	// Database pool defaults
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 25
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
	if cfg.Database.MaxConnLifetime == 0 {
		cfg.Database.MaxConnLifetime = time.Hour
	}
	if cfg.Database.MaxConnIdleTime == 0 {
		cfg.Database.MaxConnIdleTime = 10 * time.Minute
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = 30 * time.Second
	}

	// Redis defaults
	if cfg.Redis.Port == 0 && cfg.Redis.Host != "" {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "pgcache"
	}
	if cfg.Redis.MaxRetries == 0 {
		cfg.Redis.MaxRetries = 3
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}

	// Log defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	// Metrics defaults
	if cfg.Metrics.Port == 0 && cfg.Metrics.Enabled {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = cfg.Service.Name
	}

	// Tracing defaults
	if cfg.Tracing.SampleRate == 0 && cfg.Tracing.Enabled {
		cfg.Tracing.SampleRate = 0.1
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.Service.Name
	}
	if cfg.Tracing.ExportMode == "" {
		cfg.Tracing.ExportMode = "grpc"
	}
	if cfg.Tracing.BatchTimeout == 0 {
		cfg.Tracing.BatchTimeout = 5 * time.Second
	}

	// Retry defaults
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 5
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = 500 * time.Millisecond
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 10 * time.Second
	}
}

// ApplyDefaults exposes default application for callers that build a Config by hand.
func ApplyDefaults(cfg *Config) {
	applyDefaults(cfg)
}
