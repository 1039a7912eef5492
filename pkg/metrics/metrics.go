package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes the dispatch and lifecycle counters. A nil *Collector records nothing.
type Collector struct {
	registry *prometheus.Registry

	transitions        *prometheus.CounterVec
	transitionFailures *prometheus.CounterVec
	dispatches         *prometheus.CounterVec
	dispatchDistance   prometheus.Histogram
	geocodeFailures    prometheus.Counter
	notifications      *prometheus.CounterVec
	commissions        prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldcrm_job_transitions_total",
			Help: "Successful job status transitions",
		}, []string{"transition"}),
		transitionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldcrm_job_transition_failures_total",
			Help: "Rejected or failed job status transitions",
		}, []string{"transition", "reason"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldcrm_dispatch_total",
			Help: "Closest-technician dispatch attempts by outcome",
		}, []string{"outcome"}),
		dispatchDistance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldcrm_dispatch_distance_meters",
			Help:    "Distance from the selected technician to the job site",
			Buckets: []float64{500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
		}),
		geocodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldcrm_geocode_failures_total",
			Help: "Geocoding calls that returned no coordinates",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldcrm_notifications_total",
			Help: "Outbound notifications by channel and outcome",
		}, []string{"channel", "outcome"}),
		commissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fieldcrm_commissions_created_total",
			Help: "Sales commission records created",
		}),
	}

	c.registry.MustRegister(
		c.transitions,
		c.transitionFailures,
		c.dispatches,
		c.dispatchDistance,
		c.geocodeFailures,
		c.notifications,
		c.commissions,
		collectors.NewGoCollector(),
	)
	return c
}

func (c *Collector) RecordTransition(transition string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(transition).Inc()
}

func (c *Collector) RecordTransitionFailure(transition, reason string) {
	if c == nil {
		return
	}
	c.transitionFailures.WithLabelValues(transition, reason).Inc()
}

func (c *Collector) RecordDispatch(outcome string, distanceMeters float64) {
	if c == nil {
		return
	}
	c.dispatches.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		c.dispatchDistance.Observe(distanceMeters)
	}
}

func (c *Collector) RecordGeocodeFailure() {
	if c == nil {
		return
	}
	c.geocodeFailures.Inc()
}

func (c *Collector) RecordNotification(channel string, success bool) {
	if c == nil {
		return
	}
	outcome := "sent"
	if !success {
		outcome = "failed"
	}
	c.notifications.WithLabelValues(channel, outcome).Inc()
}

func (c *Collector) RecordCommission() {
	if c == nil {
		return
	}
	c.commissions.Inc()
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
