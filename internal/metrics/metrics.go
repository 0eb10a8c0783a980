// Package metrics records configurator and cart activity as Prometheus
// collectors on a private registry.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/wondertwin-ai/rigcart/internal/build"
	"github.com/wondertwin-ai/rigcart/internal/cart"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "rigcart"

// Collector holds rigcart's collectors.
type Collector struct {
	registry *prometheus.Registry

	buildMutations *prometheus.CounterVec
	buildPrice     prometheus.Gauge
	buildFindings  prometheus.Gauge

	cartMutations *prometheus.CounterVec
	cartItems     prometheus.Gauge
	cartPrice     prometheus.Gauge

	persistFailures *prometheus.CounterVec
}

// NewCollector creates a collector and registers it on a fresh registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		buildMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "build",
				Name:      "mutations_total",
				Help:      "Build mutations by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		buildPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "total_price_minor",
			Help:      "Total price of the working build in minor currency units.",
		}),
		buildFindings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "findings",
			Help:      "Compatibility findings on the working build.",
		}),
		cartMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cart",
				Name:      "mutations_total",
				Help:      "Cart mutations by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		cartItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "items",
			Help:      "Units in the cart.",
		}),
		cartPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "total_price_minor",
			Help:      "Cart total in minor currency units.",
		}),
		persistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "persist",
				Name:      "degraded_total",
				Help:      "Times the state backend was abandoned for memory.",
			},
			[]string{"backend"},
		),
	}

	c.registry.MustRegister(
		c.buildMutations,
		c.buildPrice,
		c.buildFindings,
		c.cartMutations,
		c.cartItems,
		c.cartPrice,
		c.persistFailures,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveBuild records a build event. findings is the finding count after
// the event.
func (c *Collector) ObserveBuild(ev build.Event, findings int) {
	c.buildMutations.WithLabelValues(ev.Op, ev.Outcome.String()).Inc()
	c.buildPrice.Set(float64(ev.TotalPrice))
	c.buildFindings.Set(float64(findings))
}

// ObserveCart records a cart event.
func (c *Collector) ObserveCart(ev cart.Event) {
	c.cartMutations.WithLabelValues(ev.Op, ev.Outcome.String()).Inc()
	c.cartItems.Set(float64(ev.TotalItems))
	c.cartPrice.Set(float64(ev.TotalPrice))
}

// RecordDegraded counts a fallback from the named backend to memory.
func (c *Collector) RecordDegraded(backend string) {
	if backend == "" {
		backend = "unknown"
	}
	c.persistFailures.WithLabelValues(backend).Inc()
}

// WriteText writes every metric in the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
