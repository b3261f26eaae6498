// Package prometheus collects pipeline metrics in a private registry and
// writes them as a node-exporter textfile at the end of a run.
package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// MetricsCollector registers metric families in a run-private registry.
// Registering the same name twice returns the first family; registering it
// with another type yields a no-op family.
type MetricsCollector interface {
	RegisterCounter(name, help string, labels ...string) CounterVec
	RegisterGauge(name, help string, labels ...string) GaugeVec
	RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec
	Gatherer() prometheus.Gatherer
	// WriteTextfile atomically writes every registered metric to path in the
	// text exposition format.
	WriteTextfile(path string) error
}

type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
}

type Counter interface {
	Inc()
	Add(delta float64)
}

type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
}

type Gauge interface {
	Set(value float64)
	Add(delta float64)
}

type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
}

type Histogram interface {
	Observe(value float64)
}

// CollectorConfig names the metric families.  Every family is prefixed with
// Namespace.
type CollectorConfig struct {
	Namespace string
	// Buckets apply to histograms registered without their own.
	Buckets []float64
}

type collector struct {
	cfg    CollectorConfig
	reg    *prometheus.Registry
	logger logging.Logger

	mu     sync.Mutex
	byName map[string]prometheus.Collector
}

// NewMetricsCollector creates a collector with an empty registry.  Go
// runtime metrics are not registered; the textfile describes a run.
func NewMetricsCollector(cfg CollectorConfig, logger logging.Logger) (MetricsCollector, error) {
	if cfg.Namespace == "" {
		return nil, errors.InvalidParam("metrics namespace is required")
	}
	if cfg.Buckets == nil {
		cfg.Buckets = prometheus.ExponentialBuckets(0.01, 4, 10)
	}
	return &collector{
		cfg:    cfg,
		reg:    prometheus.NewRegistry(),
		logger: logging.OrNop(logger),
		byName: map[string]prometheus.Collector{},
	}, nil
}

func (c *collector) Gatherer() prometheus.Gatherer { return c.reg }

func (c *collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.reg); err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "cannot write metrics textfile").WithDetail(path)
	}
	return nil
}

func (c *collector) RegisterCounter(name, help string, labels ...string) CounterVec {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts(c.opts(name, help)), labels)
	if v, ok := registerAs(c, name, "counter", vec); ok {
		return counterVec{v}
	}
	return noopCounterVec{}
}

func (c *collector) RegisterGauge(name, help string, labels ...string) GaugeVec {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts(c.opts(name, help)), labels)
	if v, ok := registerAs(c, name, "gauge", vec); ok {
		return gaugeVec{v}
	}
	return noopGaugeVec{}
}

func (c *collector) RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	if buckets == nil {
		buckets = c.cfg.Buckets
	}
	o := c.opts(name, help)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: o.Namespace,
		Name:      o.Name,
		Help:      o.Help,
		Buckets:   buckets,
	}, labels)
	if v, ok := registerAs(c, name, "histogram", vec); ok {
		return histogramVec{v}
	}
	return noopHistogramVec{}
}

func (c *collector) opts(name, help string) prometheus.Opts {
	return prometheus.Opts{Namespace: c.cfg.Namespace, Name: name, Help: help}
}

// registerAs registers vec under name, or returns the family already
// registered under name when it has the same type.
func registerAs[V prometheus.Collector](c *collector, name, kind string, vec V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fq := prometheus.BuildFQName(c.cfg.Namespace, "", name)
	existing, seen := c.byName[fq]
	if !seen {
		if err := c.reg.Register(vec); err != nil {
			c.logger.Error("metric registration failed", logging.String("name", fq), logging.Err(err))
			var zero V
			return zero, false
		}
		c.byName[fq] = vec
		return vec, true
	}
	v, ok := existing.(V)
	if !ok {
		c.logger.Warn("metric registered with another type", logging.String("name", fq), logging.String("type", kind))
	}
	return v, ok
}

// ─────────────────────────────────────────────────────────────────────────────
// Adapters
// ─────────────────────────────────────────────────────────────────────────────

type counterVec struct{ *prometheus.CounterVec }

func (v counterVec) WithLabelValues(lvs ...string) Counter { return v.CounterVec.WithLabelValues(lvs...) }

type gaugeVec struct{ *prometheus.GaugeVec }

func (v gaugeVec) WithLabelValues(lvs ...string) Gauge { return v.GaugeVec.WithLabelValues(lvs...) }

type histogramVec struct{ *prometheus.HistogramVec }

func (v histogramVec) WithLabelValues(lvs ...string) Histogram {
	return v.HistogramVec.WithLabelValues(lvs...)
}

type (
	noopCounterVec   struct{}
	noopGaugeVec     struct{}
	noopHistogramVec struct{}
	noopMetric       struct{}
)

func (noopCounterVec) WithLabelValues(...string) Counter     { return noopMetric{} }
func (noopGaugeVec) WithLabelValues(...string) Gauge         { return noopMetric{} }
func (noopHistogramVec) WithLabelValues(...string) Histogram { return noopMetric{} }

func (noopMetric) Inc()            {}
func (noopMetric) Add(float64)     {}
func (noopMetric) Set(float64)     {}
func (noopMetric) Observe(float64) {}

//Personal.AI order the ending
