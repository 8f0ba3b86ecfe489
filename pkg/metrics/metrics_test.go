package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/config"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// resetMetrics resets the global metrics state for testing
func resetMetrics() {
	serverMu.Lock()
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = server.Shutdown(ctx)
		cancel()
		server = nil
	}
	serverMu.Unlock()

	registryMu.Lock()
	registry = nil
	initialized = false
	registryMu.Unlock()

	cacheSet.Store(nil)
	httpSet.Store(nil)
}

func initDisabled(t *testing.T) {
	t.Helper()
	resetMetrics()
	t.Cleanup(resetMetrics)
	if err := Init(config.MetricsConfig{Enabled: false}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
}

func TestInit(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MetricsConfig
	}{
		{name: "enabled", cfg: config.MetricsConfig{Enabled: true, Port: 19091, Path: "/metrics", Namespace: "test"}},
		{name: "disabled", cfg: config.MetricsConfig{Enabled: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetMetrics()
			defer resetMetrics()

			if err := Init(tt.cfg); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			if !IsInitialized() {
				t.Error("IsInitialized() = false after Init()")
			}
			if Registry() == nil {
				t.Error("Registry() = nil after Init()")
			}
			if err := Init(tt.cfg); err != nil {
				t.Errorf("second Init() error = %v", err)
			}
		})
	}
}

func TestCollectorsRequireInit(t *testing.T) {
	resetMetrics()

	if _, err := NewCounter(Opts{Name: "x_total"}); err == nil {
		t.Error("NewCounter() before Init() should fail")
	}
	if err := InitCacheMetrics("pgcache"); err == nil {
		t.Error("InitCacheMetrics() before Init() should fail")
	}

	// Recording helpers stay silent without metrics.
	ObserveCacheOperation("get", "memory", time.Now(), nil)
	RecordLookup("memory", true)
	RecordProvision(ProvisionCreated)
	RecordPurge("memory", 3, time.Now())
}

func TestValidateOpts(t *testing.T) {
	tests := []struct {
		name    string
		opts    Opts
		wantErr bool
	}{
		{name: "valid", opts: Opts{Namespace: "pgcache", Subsystem: "cache", Name: "hits_total", Labels: []string{"backend"}}},
		{name: "no namespace", opts: Opts{Name: "hits_total"}},
		{name: "empty name", opts: Opts{Namespace: "pgcache"}, wantErr: true},
		{name: "bad name", opts: Opts{Name: "hits-total"}, wantErr: true},
		{name: "bad label", opts: Opts{Name: "hits_total", Labels: []string{"back-end"}}, wantErr: true},
		{name: "reserved label", opts: Opts{Name: "hits_total", Labels: []string{"__name"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOpts(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateOpts() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewCounterDuplicate(t *testing.T) {
	initDisabled(t)

	opts := Opts{Namespace: "test", Name: "dup_total", Help: "dup"}
	if _, err := NewCounter(opts); err != nil {
		t.Fatalf("first NewCounter() error = %v", err)
	}
	if _, err := NewCounter(opts); err == nil {
		t.Error("duplicate NewCounter() should fail")
	}
}

func TestCacheMetrics(t *testing.T) {
	initDisabled(t)

	if err := InitCacheMetrics("pgcache"); err != nil {
		t.Fatalf("InitCacheMetrics() error = %v", err)
	}
	if err := InitCacheMetrics("pgcache"); err != nil {
		t.Fatalf("second InitCacheMetrics() error = %v", err)
	}

	start := time.Now()
	ObserveCacheOperation("get", "postgres", start, nil)
	ObserveCacheOperation("get", "postgres", start, nil)
	ObserveCacheOperation("set", "postgres", start, errors.NewTemporary("dial", nil))
	RecordLookup("postgres", true)
	RecordLookup("postgres", false)
	RecordLookup("postgres", false)
	RecordProvision(ProvisionCreated)
	RecordPurge("postgres", 7, time.Unix(1700000000, 0))

	m := cacheSet.Load()
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"get ok", testutil.ToFloat64(m.operations.vec.WithLabelValues("get", "postgres", "ok")), 2},
		{"set temporary", testutil.ToFloat64(m.operations.vec.WithLabelValues("set", "postgres", "temporary")), 1},
		{"hits", testutil.ToFloat64(m.lookups.vec.WithLabelValues("postgres", "hit")), 1},
		{"misses", testutil.ToFloat64(m.lookups.vec.WithLabelValues("postgres", "miss")), 2},
		{"provisioned", testutil.ToFloat64(m.provisioned.vec.WithLabelValues(ProvisionCreated)), 1},
		{"purged", testutil.ToFloat64(m.purged.vec.WithLabelValues("postgres")), 7},
		{"last purge", testutil.ToFloat64(m.lastSweep.vec.WithLabelValues("postgres")), 1700000000},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if n := testutil.CollectAndCount(m.duration.vec); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	initDisabled(t)
	if err := InitHTTPMetrics("pgcache"); err != nil {
		t.Fatalf("InitHTTPMetrics() error = %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/cache/{key}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("value"))
	})
	handler := HTTPMiddleware(mux)

	for _, key := range []string{"a", "b", "c"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/cache/"+key, nil))
	}
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	m := httpSet.Load()
	if got := testutil.ToFloat64(m.requests.vec.WithLabelValues("GET", "GET /v1/cache/{key}", "200")); got != 3 {
		t.Errorf("routed requests = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.requests.vec.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestHTTPMiddlewarePassThrough(t *testing.T) {
	resetMetrics()

	called := false
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called || rec.Code != http.StatusTeapot {
		t.Errorf("handler not invoked as-is: called=%v code=%d", called, rec.Code)
	}
}

func TestHandler(t *testing.T) {
	initDisabled(t)
	if err := InitCacheMetrics("pgcache"); err != nil {
		t.Fatalf("InitCacheMetrics() error = %v", err)
	}
	RecordLookup("memory", true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "pgcache_cache_lookups_total") {
		t.Errorf("exposition missing lookups metric:\n%s", rec.Body.String())
	}
}
