package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/errors"
)

// Provisioning outcomes recorded by RecordProvision.
const (
	ProvisionExisting = "existing"
	ProvisionCreated  = "created"
	ProvisionRaced    = "raced"
	ProvisionFailed   = "failed"
)

type cacheMetrics struct {
	operations  *Counter
	duration    *Histogram
	lookups     *Counter
	provisioned *Counter
	purged      *Counter
	lastSweep   *Gauge
}

var (
	cacheSet  atomic.Pointer[cacheMetrics]
	cacheInit sync.Mutex
)

// InitCacheMetrics registers the cache operation metrics. It requires Init
// and is a no-op once the metrics exist.
func InitCacheMetrics(namespace string) error {
	cacheInit.Lock()
	defer cacheInit.Unlock()

	if cacheSet.Load() != nil {
		return nil
	}

	var (
		m   cacheMetrics
		err error
	)

	if m.operations, err = NewCounter(Opts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Cache operations by operation, backend and outcome",
		Labels:    []string{"operation", "backend", "outcome"},
	}); err != nil {
		return err
	}

	if m.duration, err = NewHistogram(Opts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "operation_duration_seconds",
		Help:      "Cache operation latency in seconds",
		Labels:    []string{"operation", "backend"},
	}, []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}); err != nil {
		return err
	}

	if m.lookups, err = NewCounter(Opts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Completed reads split into hits and misses",
		Labels:    []string{"backend", "result"},
	}); err != nil {
		return err
	}

	if m.provisioned, err = NewCounter(Opts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "table_provisioning_total",
		Help:      "Cache table provisioning attempts by outcome",
		Labels:    []string{"outcome"},
	}); err != nil {
		return err
	}

	if m.purged, err = NewCounter(Opts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "purged_entries_total",
		Help:      "Expired entries deleted by purge runs",
		Labels:    []string{"backend"},
	}); err != nil {
		return err
	}

	if m.lastSweep, err = NewGauge(Opts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "last_purge_timestamp_seconds",
		Help:      "Unix time of the last successful purge run",
		Labels:    []string{"backend"},
	}); err != nil {
		return err
	}

	cacheSet.Store(&m)
	return nil
}

// ObserveCacheOperation records the outcome and latency of one cache
// operation that started at start.
func ObserveCacheOperation(operation, backend string, start time.Time, err error) {
	m := cacheSet.Load()
	if m == nil {
		return
	}
	m.operations.Inc(operation, backend, errors.Kind(err))
	m.duration.Observe(time.Since(start).Seconds(), operation, backend)
}

// RecordLookup records a completed read as a hit or a miss.
func RecordLookup(backend string, hit bool) {
	m := cacheSet.Load()
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.Inc(backend, result)
}

// RecordProvision records one provisioning outcome.
func RecordProvision(outcome string) {
	if m := cacheSet.Load(); m != nil {
		m.provisioned.Inc(outcome)
	}
}

// RecordPurge records a successful purge run that deleted n entries.
func RecordPurge(backend string, n int64, at time.Time) {
	m := cacheSet.Load()
	if m == nil {
		return
	}
	m.purged.Add(float64(n), backend)
	m.lastSweep.Set(float64(at.Unix()), backend)
}
