package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Status values reported in results.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusOK        = "ok"
	StatusError     = "error"
)

// Health runs registered checkers. Concurrent probes share one execution and
// its result is reused for the cache TTL.
type Health struct {
	mu       sync.RWMutex
	checkers map[string]Checker

	group        singleflight.Group
	cacheMu      sync.Mutex
	cachedResult *Result
	cacheExpiry  time.Time

	checkTimeout time.Duration
	cacheTTL     time.Duration
}

// Result is the aggregated outcome of all checkers.
type Result struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult is the outcome of one checker.
type CheckResult struct {
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// Option configures a Health.
type Option func(*Health)

// WithCheckTimeout bounds each checker when the caller has no deadline.
// Default is 5 seconds.
func WithCheckTimeout(d time.Duration) Option {
	return func(h *Health) {
		if d > 0 {
			h.checkTimeout = d
		}
	}
}

// WithCacheTTL sets how long a result is reused. Zero disables caching.
// Default is 1 second.
func WithCacheTTL(d time.Duration) Option {
	return func(h *Health) {
		if d >= 0 {
			h.cacheTTL = d
		}
	}
}

// New creates a Health with no checkers.
func New(opts ...Option) *Health {
	h := &Health{
		checkers:     make(map[string]Checker),
		checkTimeout: 5 * time.Second,
		cacheTTL:     time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds or replaces the checker for name.
func (h *Health) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
	h.clearCache()
}

// Names returns the registered component names in sorted order.
func (h *Health) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check runs every checker concurrently and aggregates the results.
func (h *Health) Check(ctx context.Context) *Result {
	h.cacheMu.Lock()
	if h.cachedResult != nil && time.Now().Before(h.cacheExpiry) {
		result := h.cachedResult
		h.cacheMu.Unlock()
		return result
	}
	h.cacheMu.Unlock()

	v, _, _ := h.group.Do("check", func() (interface{}, error) {
		result := h.run(ctx)
		if h.cacheTTL > 0 {
			h.cacheMu.Lock()
			h.cachedResult = result
			h.cacheExpiry = time.Now().Add(h.cacheTTL)
			h.cacheMu.Unlock()
		}
		return result, nil
	})
	return v.(*Result)
}

func (h *Health) run(ctx context.Context) *Result {
	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for name, checker := range h.checkers {
		checkers[name] = checker
	}
	h.mu.RUnlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.checkTimeout)
		defer cancel()
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result = &Result{Status: StatusHealthy, Checks: make(map[string]CheckResult, len(checkers))}
	)

	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()

			cr := CheckResult{Status: StatusOK}
			if err := checker.Check(ctx); err != nil {
				cr = CheckResult{Status: StatusError, Kind: errors.Kind(err), Message: err.Error()}
			}

			mu.Lock()
			result.Checks[name] = cr
			if cr.Status != StatusOK {
				result.Status = StatusUnhealthy
			}
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	return result
}

// IsHealthy reports whether every checker passed.
func (h *Health) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).Status == StatusHealthy
}

func (h *Health) clearCache() {
	h.cacheMu.Lock()
	h.cachedResult = nil
	h.cacheExpiry = time.Time{}
	h.cacheMu.Unlock()
}
