// Package service manages the lifecycle of the long-running parts of a
// pgcache process: the HTTP API server and background workers such as the
// expired-entry sweeper. It also bootstraps logging, metrics and tracing
// from configuration.
//
// Example usage:
//
//	httpSvc := service.NewHTTPService("pgcache-api", ":8080", handler,
//	    service.WithReadTimeout(10*time.Second),
//	    service.WithShutdownTimeout(30*time.Second),
//	)
//
//	// Start services, block until SIGINT/SIGTERM, then stop them.
//	err := service.Run(ctx, service.ShutdownConfig{Logger: logger}, httpSvc, sweeper)
package service

import "context"

// Service represents a component that can be started, stopped, and health-checked.
type Service interface {
	// Start starts the service and returns once it is ready.
	// Returns an error if the service fails to start.
	Start(ctx context.Context) error

	// Stop gracefully stops the service, waiting for in-flight work to complete.
	// The context deadline determines how long to wait.
	Stop(ctx context.Context) error

	// Name returns the name of the service for logging and identification.
	Name() string

	// Health returns nil if the service is healthy, or an error describing the problem.
	Health() error
}
