package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector()
	require.NotNil(t, collector)
	assert.NotNil(t, collector.Registry())
}

func TestRegisterCounter(t *testing.T) {
	collector := NewCollector()
	counter := collector.RegisterCounter("test_counter", "Test counter", []string{"label1"})
	require.NotNil(t, counter)

	// Verify it's registered
	registry := collector.Registry()
	err := registry.Register(counter)
	// Should fail because it's already registered
	assert.Error(t, err)
}

func TestRegisterGauge(t *testing.T) {
	collector := NewCollector()
	gauge := collector.RegisterGauge("test_gauge", "Test gauge", []string{"label1"})
	require.NotNil(t, gauge)

	// Verify it's registered
	registry := collector.Registry()
	err := registry.Register(gauge)
	// Should fail because it's already registered
	assert.Error(t, err)
}

func TestRegisterHistogram(t *testing.T) {
	collector := NewCollector()
	buckets := []float64{0.1, 0.5, 1.0, 2.5, 5.0}
	histogram := collector.RegisterHistogram("test_histogram", "Test histogram", []string{"label1"}, buckets)
	require.NotNil(t, histogram)

	// Verify it's registered
	registry := collector.Registry()
	err := registry.Register(histogram)
	// Should fail because it's already registered
	assert.Error(t, err)
}

func TestRegisterHistogram_DefaultBuckets(t *testing.T) {
	collector := NewCollector()
	histogram := collector.RegisterHistogram("test_histogram_default", "Test histogram", []string{"label1"}, nil)
	require.NotNil(t, histogram)

	// Verify it's registered
	registry := collector.Registry()
	err := registry.Register(histogram)
	// Should fail because it's already registered
	assert.Error(t, err)
}

func TestGather(t *testing.T) {
	collector := NewCollector()
	families, err := collector.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestProviderMetrics(t *testing.T) {
	collector := NewCollector()
	m := NewProviderMetrics(collector)
	require.NotNil(t, m)

	m.RecordOperation("default", "User", "create", "ok", 5*time.Millisecond)
	m.RecordConflict("default", "User", "version")
	m.RecordResourceCreated("default", "User")
	m.RecordResourceCreated("default", "User")
	m.RecordResourceDeleted("default", "User")
	m.RecordValidationFailure("urn:ietf:params:scim:schemas:core:2.0:User")
	m.RecordPatchOp("add", "ok")
	m.RecordSchemaRegistration("urn:ietf:params:scim:schemas:core:2.0:Group")

	families, err := collector.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names[MetricProviderOperationsTotal])
	assert.True(t, names[MetricProviderConflictsTotal])
	assert.True(t, names[MetricProviderResourcesTotal])
}

func TestProviderMetrics_NilReceiver(t *testing.T) {
	var m *ProviderMetrics

	// All record methods are no-ops on a nil receiver
	m.RecordOperation("default", "User", "create", "ok", time.Millisecond)
	m.RecordConflict("default", "User", "version")
	m.RecordResourceCreated("default", "User")
	m.RecordResourceDeleted("default", "User")
	m.RecordValidationFailure("s")
	m.RecordPatchOp("add", "ok")
	m.RecordSchemaRegistration("s")
}

func TestStorageMetrics(t *testing.T) {
	collector := NewCollector()
	m := NewStorageMetrics(collector)
	require.NotNil(t, m)

	m.UpdateStats(3, 42)

	families, err := collector.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if metric.GetGauge() != nil {
				values[f.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, float64(3), values[MetricStorageTenantsTotal])
	assert.Equal(t, float64(42), values[MetricStorageResourcesTotal])
}
