package middleware

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nanacaring/cmsportal/pkg/store"
)

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "cmsportal").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collector.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "cmsportal",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector holds the Prometheus series shared by all stores and sessions.
type Collector struct {
	actionsTotal     *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	activeSessions   prometheus.Gauge
	patchesSent      prometheus.Counter
	wsErrors         *prometheus.CounterVec
	unhandled        prometheus.Counter
}

// NewCollector registers the series with the configured registry.
// It panics if they are already registered there.
func NewCollector(opts ...MetricsOption) *Collector {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		actionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "actions_total",
			Help:        "Total number of plain actions dispatched",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "status"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "Time spent reducing an action and notifying listeners",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"type"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of open live sessions",
			ConstLabels: config.ConstLabels,
		}),

		patchesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patches_sent_total",
			Help:        "Total number of patches sent to browsers",
			ConstLabels: config.ConstLabels,
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total number of websocket errors by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		unhandled: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "unhandled_errors_total",
			Help:        "Total number of panics recovered outside dispatch",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Observe returns store middleware recording one count and one duration per
// plain action. A nil collector yields a pass-through.
func Observe[S any](c *Collector) store.Middleware[S] {
	return func(api store.API[S]) func(next store.Dispatch) store.Dispatch {
		return func(next store.Dispatch) store.Dispatch {
			if c == nil {
				return next
			}
			return func(ctx context.Context, action store.Action) any {
				typ := action.ActionType()
				start := time.Now()
				status := "panic"
				defer func() {
					c.dispatchDuration.WithLabelValues(typ).Observe(time.Since(start).Seconds())
					c.actionsTotal.WithLabelValues(typ, status).Inc()
				}()

				result := next(ctx, action)
				status = "ok"
				return result
			}
		}
	}
}

// SessionStarted increments the active session gauge.
func (c *Collector) SessionStarted() {
	if c != nil {
		c.activeSessions.Inc()
	}
}

// SessionEnded decrements the active session gauge.
func (c *Collector) SessionEnded() {
	if c != nil {
		c.activeSessions.Dec()
	}
}

// PatchesSent records n patches written to a browser.
func (c *Collector) PatchesSent(n int) {
	if c != nil && n > 0 {
		c.patchesSent.Add(float64(n))
	}
}

// WebSocketError records a websocket failure of the given kind
// ("read", "write", "decode", "upgrade").
func (c *Collector) WebSocketError(kind string) {
	if c != nil {
		c.wsErrors.WithLabelValues(kind).Inc()
	}
}

// Unhandled records a recovered panic.
func (c *Collector) Unhandled() {
	if c != nil {
		c.unhandled.Inc()
	}
}
