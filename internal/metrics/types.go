package metrics

// Metric name constants following Prometheus naming conventions
// Format: identra_{component}_{metric}_{unit}

// Provider metrics
const (
	MetricProviderOperationsTotal   = "identra_provider_operations_total"
	MetricProviderOperationDuration = "identra_provider_operation_duration_seconds"
	MetricProviderConflictsTotal    = "identra_provider_conflicts_total"
	MetricProviderResourcesTotal    = "identra_provider_resources_total"
)

// Schema metrics
const (
	MetricSchemaValidationFailures = "identra_schema_validation_failures_total"
	MetricSchemaRegistrationsTotal = "identra_schema_registrations_total"
)

// Patch metrics
const (
	MetricPatchOperationsTotal = "identra_patch_operations_total"
)

// Storage metrics
const (
	MetricStorageTenantsTotal   = "identra_storage_tenants_total"
	MetricStorageResourcesTotal = "identra_storage_resources_total"
)

// Label name constants
const (
	LabelTenant       = "tenant"
	LabelResourceType = "resource_type"
	LabelOperation    = "operation"
	LabelStatus       = "status"
	LabelConflict     = "conflict"
	LabelSchema       = "schema"
	LabelOp           = "op"
)
