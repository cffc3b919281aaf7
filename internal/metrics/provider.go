package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks resource provider operations
type ProviderMetrics struct {
	operationsTotal     *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec
	conflictsTotal      *prometheus.CounterVec
	resourcesTotal      *prometheus.GaugeVec
	validationFailures  *prometheus.CounterVec
	patchOpsTotal       *prometheus.CounterVec
	schemaRegistrations *prometheus.CounterVec
}

// NewProviderMetrics initializes provider metrics with the collector
func NewProviderMetrics(collector *Collector) *ProviderMetrics {
	return &ProviderMetrics{
		operationsTotal: collector.RegisterCounter(
			MetricProviderOperationsTotal,
			"Total provider operations by tenant, resource type, operation, and status",
			[]string{LabelTenant, LabelResourceType, LabelOperation, LabelStatus},
		),
		operationDuration: collector.RegisterHistogram(
			MetricProviderOperationDuration,
			"Duration of provider operations in seconds",
			[]string{LabelTenant, LabelResourceType, LabelOperation},
			prometheus.DefBuckets,
		),
		conflictsTotal: collector.RegisterCounter(
			MetricProviderConflictsTotal,
			"Total conflicts rejected by the provider, by kind",
			[]string{LabelTenant, LabelResourceType, LabelConflict},
		),
		resourcesTotal: collector.RegisterGauge(
			MetricProviderResourcesTotal,
			"Current number of resources by tenant and type",
			[]string{LabelTenant, LabelResourceType},
		),
		validationFailures: collector.RegisterCounter(
			MetricSchemaValidationFailures,
			"Total schema validation failures by schema",
			[]string{LabelSchema},
		),
		patchOpsTotal: collector.RegisterCounter(
			MetricPatchOperationsTotal,
			"Total patch operations applied, by op kind and status",
			[]string{LabelOp, LabelStatus},
		),
		schemaRegistrations: collector.RegisterCounter(
			MetricSchemaRegistrationsTotal,
			"Total schema registrations",
			[]string{LabelSchema},
		),
	}
}

// RecordOperation records a completed provider operation
func (m *ProviderMetrics) RecordOperation(tenant, resourceType, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(tenant, resourceType, operation).Observe(duration.Seconds())
	m.operationsTotal.WithLabelValues(tenant, resourceType, operation, status).Inc()
}

// RecordConflict records a rejected write by conflict kind
func (m *ProviderMetrics) RecordConflict(tenant, resourceType, kind string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(tenant, resourceType, kind).Inc()
}

// RecordResourceCreated increments the resource gauge
func (m *ProviderMetrics) RecordResourceCreated(tenant, resourceType string) {
	if m == nil {
		return
	}
	m.resourcesTotal.WithLabelValues(tenant, resourceType).Inc()
}

// RecordResourceDeleted decrements the resource gauge
func (m *ProviderMetrics) RecordResourceDeleted(tenant, resourceType string) {
	if m == nil {
		return
	}
	m.resourcesTotal.WithLabelValues(tenant, resourceType).Dec()
}

// RecordValidationFailure increments the validation failure counter
func (m *ProviderMetrics) RecordValidationFailure(schema string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(schema).Inc()
}

// RecordPatchOp records an applied or rejected patch operation
func (m *ProviderMetrics) RecordPatchOp(op, status string) {
	if m == nil {
		return
	}
	m.patchOpsTotal.WithLabelValues(op, status).Inc()
}

// RecordSchemaRegistration increments the schema registration counter
func (m *ProviderMetrics) RecordSchemaRegistration(schema string) {
	if m == nil {
		return
	}
	m.schemaRegistrations.WithLabelValues(schema).Inc()
}
