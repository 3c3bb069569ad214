package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the core metrics of the model layer.
type Metrics struct {
	// Normalization metrics
	Normalizations *prometheus.CounterVec

	// Schema mutation metrics
	SchemaMutations  *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	ExtendedElements *prometheus.GaugeVec

	// Change event metrics
	EventsPublished *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec

	// NATS metrics
	NATSConnected prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all core metrics
func NewMetrics() *Metrics {
	return &Metrics{
		Normalizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semmodel",
				Subsystem: "types",
				Name:      "normalizations_total",
				Help:      "Total number of value normalizations by type and result",
			},
			[]string{"type", "result"},
		),

		SchemaMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semmodel",
				Subsystem: "model",
				Name:      "mutations_total",
				Help:      "Total number of schema mutations by element kind, action and result",
			},
			[]string{"kind", "action", "result"},
		),

		MutationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "semmodel",
				Subsystem: "model",
				Name:      "mutation_duration_seconds",
				Help:      "Schema mutation duration in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"kind", "action"},
		),

		ExtendedElements: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "semmodel",
				Subsystem: "model",
				Name:      "extended_elements",
				Help:      "Number of extended schema elements by kind",
			},
			[]string{"kind"},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semmodel",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Total number of model change events delivered by sink",
			},
			[]string{"sink"},
		),

		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semmodel",
				Subsystem: "events",
				Name:      "dropped_total",
				Help:      "Total number of model change events that could not be delivered",
			},
			[]string{"sink"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "semmodel",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

func (c *Metrics) register(reg *prometheus.Registry) {
	reg.MustRegister(
		c.Normalizations,
		c.SchemaMutations,
		c.MutationDuration,
		c.ExtendedElements,
		c.EventsPublished,
		c.EventsDropped,
		c.NATSConnected,
	)
}

// RecordNormalization increments the normalization counter for a type
func (c *Metrics) RecordNormalization(typeName string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.Normalizations.WithLabelValues(typeName, result).Inc()
}

// RecordMutation records the outcome and duration of a schema mutation
func (c *Metrics) RecordMutation(kind, action, result string, duration time.Duration) {
	c.SchemaMutations.WithLabelValues(kind, action, result).Inc()
	c.MutationDuration.WithLabelValues(kind, action).Observe(duration.Seconds())
}

// RecordExtendedCount sets the number of extended elements of a kind
func (c *Metrics) RecordExtendedCount(kind string, n int) {
	c.ExtendedElements.WithLabelValues(kind).Set(float64(n))
}

// RecordEventPublished increments the delivered event counter for a sink
func (c *Metrics) RecordEventPublished(sink string) {
	c.EventsPublished.WithLabelValues(sink).Inc()
}

// RecordEventDropped increments the dropped event counter for a sink
func (c *Metrics) RecordEventDropped(sink string) {
	c.EventsDropped.WithLabelValues(sink).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}
