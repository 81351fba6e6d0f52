// Package metrics exposes event bus activity to Prometheus.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dshills/gatekeep/internal/event"
)

const namespace = "gatekeep"

// Collector reports bus statistics as Prometheus metrics and counts every
// event it observes by name.
type Collector struct {
	bus *event.Bus

	published   *prometheus.Desc
	processed   *prometheus.Desc
	errors      *prometheus.Desc
	subscribers *prometheus.Desc
	wildcards   *prometheus.Desc

	observed *prometheus.CounterVec
}

// NewCollector creates a Collector reading stats from b.
// Call Attach to start counting observed events.
func NewCollector(b *event.Bus) *Collector {
	return &Collector{
		bus: b,
		published: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "published_total"),
			"Events published on the bus.", nil, nil),
		processed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "processed_total"),
			"Subscriber invocations that completed without error.", nil, nil),
		errors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "errors_total"),
			"Subscriber invocations that failed or panicked.", nil, nil),
		subscribers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "subscribers"),
			"Named subscribers currently registered.", nil, nil),
		wildcards: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "bus", "wildcard_subscribers"),
			"Wildcard subscribers currently registered.", nil, nil),
		observed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_observed_total",
			Help:      "Events delivered to the metrics observer, by name.",
		}, []string{"event"}),
	}
}

// Attach subscribes the collector to every event on the bus.
func (c *Collector) Attach() (event.Unsubscribe, error) {
	return c.bus.OnAny(c)
}

// HandleAny implements event.WildcardHandler.
func (c *Collector) HandleAny(_ context.Context, name string, _ event.Event) error {
	c.observed.WithLabelValues(name).Inc()
	return nil
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.published
	ch <- c.processed
	ch <- c.errors
	ch <- c.subscribers
	ch <- c.wildcards
	c.observed.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.bus.Stats()
	ch <- prometheus.MustNewConstMetric(c.published, prometheus.CounterValue, float64(s.TotalPublished))
	ch <- prometheus.MustNewConstMetric(c.processed, prometheus.CounterValue, float64(s.TotalProcessed))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(s.TotalErrors))
	ch <- prometheus.MustNewConstMetric(c.subscribers, prometheus.GaugeValue, float64(s.SubscriberCount))
	ch <- prometheus.MustNewConstMetric(c.wildcards, prometheus.GaugeValue, float64(s.WildcardCount))
	c.observed.Collect(ch)
}

// Register creates a registry holding the collector plus the Go and
// process collectors.
func Register(c *Collector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	return reg, nil
}
