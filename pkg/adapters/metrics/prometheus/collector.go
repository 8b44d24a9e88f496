package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements bus.MetricsCollector using Prometheus
type Collector struct {
	postsTotal        prometheus.Counter
	postsUnmatched    prometheus.Counter
	deliveries        *prometheus.CounterVec
	deliveryDuration  *prometheus.HistogramVec
	removals          *prometheus.CounterVec
	sweeps            prometheus.Counter
	sweepDuration     prometheus.Histogram
	subscriptions     *prometheus.GaugeVec
	stickyEvents      prometheus.Gauge
	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge

	// Daemon metrics
	eventsSubmitted *prometheus.CounterVec
	tapClients      prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector registered with
// reg. A nil reg registers with the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		postsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pocketbus_posts_total",
				Help: "Total number of events posted",
			},
		),
		postsUnmatched: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pocketbus_posts_unmatched_total",
				Help: "Total number of posted events no subscription accepted",
			},
		),
		deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pocketbus_deliveries_total",
				Help: "Total number of deliveries by thread mode and outcome",
			},
			[]string{"thread_mode", "outcome"},
		),
		deliveryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pocketbus_delivery_duration_seconds",
				Help:    "Subscription handler duration in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"thread_mode"},
		),
		removals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pocketbus_subscriptions_removed_total",
				Help: "Total number of subscriptions removed by thread mode and reason",
			},
			[]string{"thread_mode", "reason"},
		),
		sweeps: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pocketbus_sweeps_total",
				Help: "Total number of dead subscription sweeps",
			},
		),
		sweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pocketbus_sweep_duration_seconds",
				Help:    "Sweep duration in seconds",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
			},
		),
		subscriptions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pocketbus_subscriptions",
				Help: "Current number of subscriptions by thread mode",
			},
			[]string{"thread_mode"},
		),
		stickyEvents: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pocketbus_sticky_events",
				Help: "Current number of stored sticky events",
			},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pocketbus_worker_pool_idle",
				Help: "Number of idle background workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pocketbus_worker_pool_busy",
				Help: "Number of busy background workers",
			},
		),
		workerPoolStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pocketbus_worker_pool_stopped",
				Help: "Number of stopped background workers",
			},
		),
		eventsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pocketbus_events_submitted_total",
				Help: "Total number of events submitted through the admin API",
			},
			[]string{"kind", "status"},
		),
		tapClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pocketbus_tap_clients",
				Help: "Number of connected websocket tap clients",
			},
		),
	}
}

// RecordPost records a posted event and how many subscriber lists matched it
func (c *Collector) RecordPost(matched int) {
	c.postsTotal.Inc()
	if matched == 0 {
		c.postsUnmatched.Inc()
	}
}

// RecordDelivery records the outcome of one subscription invocation
func (c *Collector) RecordDelivery(mode, outcome string, duration time.Duration) {
	c.deliveries.WithLabelValues(mode, outcome).Inc()
	if duration > 0 {
		c.deliveryDuration.WithLabelValues(mode).Observe(duration.Seconds())
	}
}

// RecordRemoval records removed subscriptions
func (c *Collector) RecordRemoval(mode, reason string, count int) {
	c.removals.WithLabelValues(mode, reason).Add(float64(count))
}

// RecordSweep records a sweep of dead subscriptions
func (c *Collector) RecordSweep(removed int, duration time.Duration) {
	c.sweeps.Inc()
	c.sweepDuration.Observe(duration.Seconds())
}

// SetSubscriptions sets the number of subscriptions registered for a thread mode
func (c *Collector) SetSubscriptions(mode string, count int) {
	c.subscriptions.WithLabelValues(mode).Set(float64(count))
}

// SetStickyEvents sets the number of stored sticky events
func (c *Collector) SetStickyEvents(count int) {
	c.stickyEvents.Set(float64(count))
}

// RecordWorkerPoolStatus records background worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}

// RecordEventSubmitted records an event submitted through the admin API
func (c *Collector) RecordEventSubmitted(kind, status string) {
	c.eventsSubmitted.WithLabelValues(kind, status).Inc()
}

// SetTapClients sets the number of connected tap clients
func (c *Collector) SetTapClients(count int) {
	c.tapClients.Set(float64(count))
}
