// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

package lucien

import "github.com/prometheus/client_golang/prometheus"

// PrometheusCollector exports an Index's Stats as Prometheus gauges:
// node_count, entity_count, version, ghost_elements, remote_elements
// (SPEC_FULL DOMAIN STACK). Register it with a prometheus.Registerer so
// a host process can scrape an embedded index's internals.
type PrometheusCollector[K SpatialKey, V any] struct {
	ix *Index[K, V]

	nodeCount    *prometheus.Desc
	entityCount  *prometheus.Desc
	version      *prometheus.Desc
	ghostCount   *prometheus.Desc
	remoteCount  *prometheus.Desc
}

// NewPrometheusCollector wraps ix for Prometheus registration.
func NewPrometheusCollector[K SpatialKey, V any](ix *Index[K, V], namespace string) *PrometheusCollector[K, V] {
	return &PrometheusCollector[K, V]{
		ix:          ix,
		nodeCount:   prometheus.NewDesc(namespace+"_node_count", "Number of materialized nodes.", nil, nil),
		entityCount: prometheus.NewDesc(namespace+"_entity_count", "Number of stored entities.", nil, nil),
		version:     prometheus.NewDesc(namespace+"_version", "Monotonic mutation counter.", nil, nil),
		ghostCount:  prometheus.NewDesc(namespace+"_ghost_elements", "Number of cached ghost elements.", nil, nil),
		remoteCount: prometheus.NewDesc(namespace+"_remote_elements", "Number of remote element references.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *PrometheusCollector[K, V]) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodeCount
	ch <- c.entityCount
	ch <- c.version
	ch <- c.ghostCount
	ch <- c.remoteCount
}

// Collect implements prometheus.Collector.
func (c *PrometheusCollector[K, V]) Collect(ch chan<- prometheus.Metric) {
	s := c.ix.StatsSnapshot()
	ch <- prometheus.MustNewConstMetric(c.nodeCount, prometheus.GaugeValue, float64(s.NodeCount))
	ch <- prometheus.MustNewConstMetric(c.entityCount, prometheus.GaugeValue, float64(s.EntityCount))
	ch <- prometheus.MustNewConstMetric(c.version, prometheus.GaugeValue, float64(s.Version))
	ch <- prometheus.MustNewConstMetric(c.ghostCount, prometheus.GaugeValue, float64(s.GhostCount))
	ch <- prometheus.MustNewConstMetric(c.remoteCount, prometheus.GaugeValue, float64(s.RemoteCount))
}
