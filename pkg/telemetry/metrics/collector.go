package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ganymede/pkg/directory"
)

// StatsSource yields a point-in-time view of the directory cache.
// *directory.Cache satisfies it.
type StatsSource interface {
	Stats() directory.Stats
}

// DirectoryCollector exposes the directory cache state as gauges,
// pulled fresh on every scrape.
type DirectoryCollector struct {
	source StatsSource

	repositories    *prometheus.Desc
	healthy         *prometheus.Desc
	stale           *prometheus.Desc
	lastRefresh     *prometheus.Desc
	refreshes       *prometheus.Desc
	refreshFailures *prometheus.Desc
}

var _ prometheus.Collector = (*DirectoryCollector)(nil)

// NewDirectoryCollector creates and registers the directory collector.
func NewDirectoryCollector(namespace, subsystem string, source StatsSource, registry *prometheus.Registry) *DirectoryCollector {
	fqName := func(name string) string {
		return prometheus.BuildFQName(namespace, subsystem, name)
	}

	c := &DirectoryCollector{
		source: source,
		repositories: prometheus.NewDesc(fqName("directory_repositories"),
			"Number of repositories in the cached directory", nil, nil),
		healthy: prometheus.NewDesc(fqName("directory_backend_healthy"),
			"Whether the document store backend is healthy (1) or not (0)", nil, nil),
		stale: prometheus.NewDesc(fqName("directory_stale"),
			"Whether the directory is served from a restored snapshot (1) or a live refresh (0)", nil, nil),
		lastRefresh: prometheus.NewDesc(fqName("directory_last_refresh_timestamp_seconds"),
			"Unix time of the last successful directory refresh", nil, nil),
		refreshes: prometheus.NewDesc(fqName("directory_refreshes_total"),
			"Total number of successful directory refreshes", nil, nil),
		refreshFailures: prometheus.NewDesc(fqName("directory_refresh_failures_total"),
			"Total number of failed directory refreshes", nil, nil),
	}

	registry.MustRegister(c)
	return c
}

// Describe implements prometheus.Collector.
func (c *DirectoryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.repositories
	ch <- c.healthy
	ch <- c.stale
	ch <- c.lastRefresh
	ch <- c.refreshes
	ch <- c.refreshFailures
}

// Collect implements prometheus.Collector.
func (c *DirectoryCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()

	boolValue := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}

	ch <- prometheus.MustNewConstMetric(c.repositories, prometheus.GaugeValue, float64(stats.Repositories))
	ch <- prometheus.MustNewConstMetric(c.healthy, prometheus.GaugeValue, boolValue(stats.Healthy))
	ch <- prometheus.MustNewConstMetric(c.stale, prometheus.GaugeValue, boolValue(stats.Stale))

	var lastRefresh float64
	if !stats.LastRefresh.IsZero() {
		lastRefresh = float64(stats.LastRefresh.Unix())
	}
	ch <- prometheus.MustNewConstMetric(c.lastRefresh, prometheus.GaugeValue, lastRefresh)
	ch <- prometheus.MustNewConstMetric(c.refreshes, prometheus.CounterValue, float64(stats.Refreshes))
	ch <- prometheus.MustNewConstMetric(c.refreshFailures, prometheus.CounterValue, float64(stats.RefreshFailures))
}
