// Package metrics exports Herald's cache and resolution counters to
// Prometheus. A Collector is both a cache.Recorder and a plugin, so one
// value is handed to the engine through WithMetrics and WithPlugin.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/cache"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/plugin"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
)

// Collector holds Herald's Prometheus metrics.
type Collector struct {
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	resolves    *prometheus.CounterVec
	resolveTime prometheus.Histogram
	roleChanges *prometheus.CounterVec
	assignments *prometheus.CounterVec

	registry *prometheus.Registry
}

var (
	_ cache.Recorder          = (*Collector)(nil)
	_ plugin.PoliciesResolved = (*Collector)(nil)
	_ plugin.RoleCreated      = (*Collector)(nil)
	_ plugin.RoleUpdated      = (*Collector)(nil)
	_ plugin.RoleDeleted      = (*Collector)(nil)
	_ plugin.RoleAssigned     = (*Collector)(nil)
	_ plugin.RoleUnassigned   = (*Collector)(nil)
)

// New creates a Collector registered on its own registry under namespace.
// Go runtime and process collectors are included.
func New(namespace string) *Collector {
	c := &Collector{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by cache name",
		}, []string{"cache"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses by cache name",
		}, []string{"cache"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Policy resolutions by outcome",
		}, []string{"outcome"}),
		resolveTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Policy resolution latency",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		roleChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roles",
			Name:      "changes_total",
			Help:      "Role definition changes by operation",
		}, []string{"op"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assignments",
			Name:      "changes_total",
			Help:      "Role assignment changes by operation",
		}, []string{"op"}),
		registry: prometheus.NewRegistry(),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.cacheHits,
		c.cacheMisses,
		c.resolves,
		c.resolveTime,
		c.roleChanges,
		c.assignments,
	)
	return c
}

// Name implements plugin.Plugin.
func (c *Collector) Name() string { return "prometheus" }

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// CacheHit implements cache.Recorder.
func (c *Collector) CacheHit(name string) { c.cacheHits.WithLabelValues(name).Inc() }

// CacheMiss implements cache.Recorder.
func (c *Collector) CacheMiss(name string) { c.cacheMisses.WithLabelValues(name).Inc() }

func (c *Collector) OnPoliciesResolved(_ context.Context, _ string, _ policy.Set, took time.Duration, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.resolves.WithLabelValues(outcome).Inc()
	c.resolveTime.Observe(took.Seconds())
	return nil
}

func (c *Collector) OnRoleCreated(context.Context, *role.Role) error {
	c.roleChanges.WithLabelValues("create").Inc()
	return nil
}

func (c *Collector) OnRoleUpdated(context.Context, *role.Role) error {
	c.roleChanges.WithLabelValues("update").Inc()
	return nil
}

func (c *Collector) OnRoleDeleted(context.Context, id.RoleID) error {
	c.roleChanges.WithLabelValues("delete").Inc()
	return nil
}

func (c *Collector) OnRoleAssigned(context.Context, *assignment.Assignment) error {
	c.assignments.WithLabelValues("assign").Inc()
	return nil
}

func (c *Collector) OnRoleUnassigned(context.Context, *assignment.Assignment) error {
	c.assignments.WithLabelValues("unassign").Inc()
	return nil
}
