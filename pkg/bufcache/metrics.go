package bufcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus instrumentation for a single Cache. Each
// Cache gets its own prometheus.Registry rather than registering against
// prometheus.DefaultRegisterer, so that a process (or a test binary) can
// construct more than one Cache without duplicate-registration panics.
type metrics struct {
	registry *prometheus.Registry

	hits     prometheus.Counter
	misses   prometheus.Counter
	acquires prometheus.Counter
	releases prometheus.Counter
	buffers  prometheus.Gauge
	dirty    prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "blt_bufcache_hits_total",
			Help: "Number of buffer cache lookups that found a recently-touched offset.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "blt_bufcache_misses_total",
			Help: "Number of buffer cache lookups that fell outside the LRU tracking window.",
		}),
		acquires: factory.NewCounter(prometheus.CounterOpts{
			Name: "blt_bufcache_latch_acquires_total",
			Help: "Number of per-buffer latch acquisitions.",
		}),
		releases: factory.NewCounter(prometheus.CounterOpts{
			Name: "blt_bufcache_latch_releases_total",
			Help: "Number of per-buffer latch releases.",
		}),
		buffers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "blt_bufcache_buffers",
			Help: "Number of buffers currently resident in the cache.",
		}),
		dirty: factory.NewGauge(prometheus.GaugeOpts{
			Name: "blt_bufcache_dirty_buffers",
			Help: "Number of buffers currently marked dirty.",
		}),
	}
}

// Registry exposes the cache's private Prometheus registry so a caller
// (typically pkg/api) can fold it into an HTTP /metrics endpoint.
func (c *Cache) Registry() *prometheus.Registry {
	return c.metrics.registry
}
