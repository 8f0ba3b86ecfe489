// Package logging provides structured logging with zerolog.
// It supports configurable log levels, output formats (JSON/console), request-scoped
// loggers carried through context.Context, and HTTP request logging.
//
// Example usage:
//
//	logger := logging.New(cfg.Log).WithComponent("cache")
//	logger.Info().Str(logging.Table, "Cache").Msg("cache table provisioned")
package logging

// Standard field names for structured logging.
const (
	// ServiceName is the field name for the service generating the log.
	ServiceName = "service_name"

	// Error is the field name for error information.
	Error = "error"

	// RequestID is the field name for HTTP request ID.
	RequestID = "request_id"

	// Method is the field name for HTTP method.
	Method = "method"

	// Path is the field name for HTTP path.
	Path = "path"

	// StatusCode is the field name for HTTP status code.
	StatusCode = "status_code"

	// BytesOut is the field name for the size of an HTTP response body.
	BytesOut = "bytes_out"

	// Duration is the field name for operation duration.
	Duration = "duration_ms"

	// Component is the field name for the component/package generating the log.
	Component = "component"

	// CacheKey is the field name for the cache entry key.
	CacheKey = "cache_key"

	// Operation is the field name for the cache operation (get, set, remove, refresh, purge).
	Operation = "operation"

	// Backend is the field name for the cache store backend.
	Backend = "backend"

	// Schema is the field name for the cache table schema.
	Schema = "schema"

	// Table is the field name for the cache table name.
	Table = "table"

	// Principal is the field name for the authenticated caller.
	Principal = "principal"
)
