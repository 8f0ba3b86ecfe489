package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type httpMetrics struct {
	duration *Histogram
	requests *Counter
	respSize *Histogram
}

var (
	httpSet  atomic.Pointer[httpMetrics]
	httpInit sync.Mutex
)

// InitHTTPMetrics registers the HTTP API metrics. It requires Init and is a
// no-op once the metrics exist.
func InitHTTPMetrics(namespace string) error {
	httpInit.Lock()
	defer httpInit.Unlock()

	if httpSet.Load() != nil {
		return nil
	}

	var (
		m   httpMetrics
		err error
	)
	labels := []string{"method", "route", "status_code"}

	if m.duration, err = NewHistogram(Opts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Labels:    labels,
	}, []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}); err != nil {
		return err
	}

	if m.requests, err = NewCounter(Opts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests",
		Labels:    labels,
	}); err != nil {
		return err
	}

	if m.respSize, err = NewHistogram(Opts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Labels:    labels,
	}, []float64{64, 256, 1024, 4096, 16384, 65536, 262144, 1048576}); err != nil {
		return err
	}

	httpSet.Store(&m)
	return nil
}

// HTTPMiddleware records request count, duration and response size. Requests
// are labelled by the matched ServeMux pattern rather than the raw path, so
// cache keys never become label values; the middleware must therefore wrap
// the mux directly.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpSet.Load()
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(wrapped.statusCode)

		m.duration.Observe(time.Since(start).Seconds(), r.Method, route, status)
		m.requests.Inc(r.Method, route, status)
		m.respSize.Observe(float64(wrapped.bytesWritten), r.Method, route, status)
	})
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	written      bool
}

func (m *metricsResponseWriter) WriteHeader(code int) {
	if !m.written {
		m.statusCode = code
		m.written = true
		m.ResponseWriter.WriteHeader(code)
	}
}

func (m *metricsResponseWriter) Write(b []byte) (int, error) {
	if !m.written {
		m.WriteHeader(http.StatusOK)
	}
	n, err := m.ResponseWriter.Write(b)
	m.bytesWritten += n
	return n, err
}
