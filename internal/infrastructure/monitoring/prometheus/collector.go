// Package prometheus exposes the engine's operational metrics. The engine is
// a batch process, so the metric surface is small: batch outcomes, graph
// degradation, and whole-run duration.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// namespace prefixes every metric this service exports.
const namespace = "risk_engine"

// Collector owns the metric registry and its HTTP exposition handler.
type Collector struct {
	registry *prometheus.Registry
}

// NewCollector builds a registry with process and Go runtime collectors
// attached.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())
	return &Collector{registry: registry}
}

// Registry exposes the underlying registry for metric registration.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the /metrics exposition handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
