package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StorageMetrics tracks backend-level gauges refreshed from storage stats
type StorageMetrics struct {
	tenantsTotal   prometheus.Gauge
	resourcesTotal prometheus.Gauge
}

// NewStorageMetrics initializes storage metrics with the collector
func NewStorageMetrics(collector *Collector) *StorageMetrics {
	return &StorageMetrics{
		tenantsTotal: collector.RegisterGauge(
			MetricStorageTenantsTotal,
			"Number of tenants with stored resources",
			nil,
		).WithLabelValues(),
		resourcesTotal: collector.RegisterGauge(
			MetricStorageResourcesTotal,
			"Total number of stored resources across tenants",
			nil,
		).WithLabelValues(),
	}
}

// UpdateStats refreshes the gauges from a storage stats snapshot
func (m *StorageMetrics) UpdateStats(tenantCount, totalResources int) {
	if m == nil {
		return
	}
	m.tenantsTotal.Set(float64(tenantCount))
	m.resourcesTotal.Set(float64(totalResources))
}
