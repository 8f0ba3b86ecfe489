package metrics

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	validMetricName = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
	validLabelName  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Opts names a metric and its labels. The full metric name is
// "{namespace}_{subsystem}_{name}".
type Opts struct {
	Namespace string
	Subsystem string
	Name      string
	Help      string
	Labels    []string
}

// Counter is a labelled Prometheus counter.
type Counter struct {
	vec *prometheus.CounterVec
}

// NewCounter creates and registers a counter with the global registry.
func NewCounter(opts Opts) (*Counter, error) {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
	}, opts.Labels)
	if err := register(opts, vec); err != nil {
		return nil, err
	}
	return &Counter{vec: vec}, nil
}

// Inc increments the counter by 1 for the given label values.
func (c *Counter) Inc(labelValues ...string) {
	c.vec.WithLabelValues(labelValues...).Inc()
}

// Add increments the counter by a non-negative value.
func (c *Counter) Add(value float64, labelValues ...string) {
	c.vec.WithLabelValues(labelValues...).Add(value)
}

// Gauge is a labelled Prometheus gauge.
type Gauge struct {
	vec *prometheus.GaugeVec
}

// NewGauge creates and registers a gauge with the global registry.
func NewGauge(opts Opts) (*Gauge, error) {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
	}, opts.Labels)
	if err := register(opts, vec); err != nil {
		return nil, err
	}
	return &Gauge{vec: vec}, nil
}

// Set sets the gauge for the given label values.
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.vec.WithLabelValues(labelValues...).Set(value)
}

// Histogram is a labelled Prometheus histogram.
type Histogram struct {
	vec *prometheus.HistogramVec
}

// NewHistogram creates and registers a histogram with the global registry.
// A nil buckets slice selects prometheus.DefBuckets.
func NewHistogram(opts Opts, buckets []float64) (*Histogram, error) {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: opts.Namespace,
		Subsystem: opts.Subsystem,
		Name:      opts.Name,
		Help:      opts.Help,
		Buckets:   buckets,
	}, opts.Labels)
	if err := register(opts, vec); err != nil {
		return nil, err
	}
	return &Histogram{vec: vec}, nil
}

// Observe adds an observation for the given label values.
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.vec.WithLabelValues(labelValues...).Observe(value)
}

func register(opts Opts, c prometheus.Collector) error {
	reg := Registry()
	if reg == nil {
		return fmt.Errorf("metrics not initialized, call Init() first")
	}
	if err := validateOpts(opts); err != nil {
		return err
	}
	if err := reg.Register(c); err != nil {
		return fmt.Errorf("failed to register %s: %w", opts.Name, err)
	}
	return nil
}

// validateOpts enforces Prometheus naming conventions.
func validateOpts(opts Opts) error {
	parts := make([]string, 0, 3)
	for _, p := range []string{opts.Namespace, opts.Subsystem, opts.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	fullName := strings.Join(parts, "_")

	if opts.Name == "" || !validMetricName.MatchString(fullName) {
		return fmt.Errorf("invalid metric name: %q (must match %s)", fullName, validMetricName.String())
	}

	for _, label := range opts.Labels {
		if !validLabelName.MatchString(label) {
			return fmt.Errorf("invalid label name: %s (must match %s)", label, validLabelName.String())
		}
		if strings.HasPrefix(label, "__") {
			return fmt.Errorf("label name %s is reserved (starts with __)", label)
		}
	}

	return nil
}
