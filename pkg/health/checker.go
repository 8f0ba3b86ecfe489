// Package health aggregates component health for the pgcache HTTP API. The
// cache store and background services register checkers; the liveness
// endpoint never consults them and the readiness endpoint runs them all.
//
// Example usage:
//
//	h := health.New()
//	h.Register("store", health.CheckerFunc(c.Check))
//	h.Register("sweeper", health.ServiceChecker(sweeper))
//
//	mux.Handle("GET /health/live", h.LivenessHandler())
//	mux.Handle("GET /health/ready", h.ReadinessHandler())
package health

import (
	"context"
)

// Checker reports whether a component is healthy. Implementations must
// respect the context deadline.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc is a function adapter that implements the Checker interface.
type CheckerFunc func(ctx context.Context) error

// Check implements the Checker interface by calling the function.
func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// HealthReporter is anything with a context-free health probe, such as a
// service.Service.
type HealthReporter interface {
	Health() error
}

// ServiceChecker adapts a HealthReporter to a Checker.
func ServiceChecker(r HealthReporter) Checker {
	return CheckerFunc(func(context.Context) error {
		return r.Health()
	})
}
