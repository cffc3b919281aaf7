package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/engine/internal/metrics"
)

func setupTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry()
	require.NoError(t, err)
	return registry
}

func TestNewRegistry_EmbeddedDefaults(t *testing.T) {
	registry := setupTestRegistry(t)

	user, ok := registry.Get(UserSchemaURN)
	require.True(t, ok)
	assert.Equal(t, "User", user.Name)
	assert.NotEmpty(t, user.Attributes)

	group, ok := registry.Get(GroupSchemaURN)
	require.True(t, ok)
	assert.Equal(t, "Group", group.Name)

	_, ok = registry.Get(EnterpriseUserURN)
	require.True(t, ok)

	types := registry.ResourceTypes()
	assert.Contains(t, types, "User")
	assert.Contains(t, types, "Group")

	extensions := registry.Extensions("User")
	require.Len(t, extensions, 1)
	assert.Equal(t, EnterpriseUserURN, extensions[0].ID)
}

func TestRegister_Conflict(t *testing.T) {
	registry := setupTestRegistry(t)

	different := &SchemaDefinition{
		ID:   UserSchemaURN,
		Name: "User",
		Attributes: []AttributeDefinition{
			{Name: "somethingElse", Type: TypeString},
		},
	}
	err := registry.Register(different)
	require.Error(t, err)
	assert.IsType(t, SchemaConflictError{}, err)
}

func TestRegister_RejectedLeavesNoState(t *testing.T) {
	registry := setupTestRegistry(t)

	rogue := &SchemaDefinition{
		ID:   "urn:example:rogue:User",
		Name: "User",
		Attributes: []AttributeDefinition{
			{Name: "somethingElse", Type: TypeString},
		},
	}
	err := registry.Register(rogue)
	require.Error(t, err)
	assert.IsType(t, SchemaConflictError{}, err)

	_, found := registry.Get(rogue.ID)
	assert.False(t, found, "rejected registration must not leave the schema stored")
	for _, def := range registry.List() {
		assert.NotEqual(t, rogue.ID, def.ID)
	}

	base, err := registry.BaseSchema("User")
	require.NoError(t, err)
	assert.Equal(t, UserSchemaURN, base.ID)

	// The rejected id must also remain free for a later extension binding.
	ext := &SchemaDefinition{
		ID:   rogue.ID,
		Name: "Rogue",
		Attributes: []AttributeDefinition{
			{Name: "extra", Type: TypeString},
		},
	}
	require.NoError(t, registry.RegisterExtension("User", ext))
	got, found := registry.Get(rogue.ID)
	require.True(t, found)
	assert.Equal(t, "Rogue", got.Name)
}

func TestRegister_RecordsMetric(t *testing.T) {
	registry := setupTestRegistry(t)
	collector := metrics.NewCollector()
	registry.SetMetrics(metrics.NewProviderMetrics(collector))

	def := &SchemaDefinition{
		ID:   "urn:example:schemas:Device",
		Name: "Device",
		Attributes: []AttributeDefinition{
			{Name: "serialNumber", Type: TypeString},
		},
	}
	require.NoError(t, registry.Register(def))

	families, err := collector.Gather()
	require.NoError(t, err)

	var registrations float64
	for _, f := range families {
		if f.GetName() != metrics.MetricSchemaRegistrationsTotal {
			continue
		}
		for _, m := range f.GetMetric() {
			registrations += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, registrations)
}

func TestRegister_IdenticalIsNoOp(t *testing.T) {
	registry := setupTestRegistry(t)

	existing, ok := registry.Get(GroupSchemaURN)
	require.True(t, ok)

	require.NoError(t, registry.Register(existing))
}

func TestRegister_ShapeChecks(t *testing.T) {
	registry := setupTestRegistry(t)

	tests := []struct {
		name string
		def  *SchemaDefinition
	}{
		{
			name: "empty name",
			def: &SchemaDefinition{
				ID:         "urn:example:Bad",
				Attributes: []AttributeDefinition{{Name: "a", Type: TypeString}},
			},
		},
		{
			name: "zero attributes",
			def:  &SchemaDefinition{ID: "urn:example:Bad", Name: "Bad"},
		},
		{
			name: "complex without sub-attributes",
			def: &SchemaDefinition{
				ID:   "urn:example:Bad",
				Name: "Bad",
				Attributes: []AttributeDefinition{
					{Name: "thing", Type: TypeComplex},
				},
			},
		},
		{
			name: "canonical values on non-string",
			def: &SchemaDefinition{
				ID:   "urn:example:Bad",
				Name: "Bad",
				Attributes: []AttributeDefinition{
					{Name: "flag", Type: TypeBoolean, CanonicalValues: []string{"yes"}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Register(tt.def)
			require.Error(t, err)
			assert.IsType(t, InvalidSchemaError{}, err)
		})
	}
}

func TestRegisterDocument_CustomSchema(t *testing.T) {
	registry := setupTestRegistry(t)

	doc := []byte(`{
		"id": "urn:example:schemas:Device",
		"name": "Device",
		"description": "A managed device",
		"attributes": [
			{"name": "serialNumber", "type": "string", "required": true, "uniqueness": "server"},
			{"name": "online", "type": "boolean"}
		]
	}`)
	require.NoError(t, registry.RegisterDocument(doc))

	def, ok := registry.Get("urn:example:schemas:Device")
	require.True(t, ok)
	assert.Equal(t, "Device", def.Name)

	base, err := registry.BaseSchema("Device")
	require.NoError(t, err)
	assert.Equal(t, def.ID, base.ID)
}

func TestRegisterDocument_RejectsMalformed(t *testing.T) {
	registry := setupTestRegistry(t)

	// attributes must be an array of objects per the meta-schema
	doc := []byte(`{"id": "urn:example:Bad", "name": "Bad", "attributes": "nope"}`)
	err := registry.RegisterDocument(doc)
	require.Error(t, err)
}

func TestNewRegistryFromDir(t *testing.T) {
	dir := t.TempDir()
	doc := `{
		"id": "urn:example:schemas:Widget",
		"name": "Widget",
		"attributes": [
			{"name": "label", "type": "string", "required": true}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "widget.json"), []byte(doc), 0644))

	registry, err := NewRegistryFromDir(dir)
	require.NoError(t, err)

	_, ok := registry.Get("urn:example:schemas:Widget")
	assert.True(t, ok)

	// Embedded defaults are not loaded when a directory is the source
	_, ok = registry.Get(UserSchemaURN)
	assert.False(t, ok)
}

func TestNewRegistryFromDir_Empty(t *testing.T) {
	_, err := NewRegistryFromDir(t.TempDir())
	require.Error(t, err)
}

func TestBaseSchema_UnknownResourceType(t *testing.T) {
	registry := setupTestRegistry(t)

	_, err := registry.BaseSchema("Robot")
	require.Error(t, err)
	assert.IsType(t, ResourceTypeNotFoundError{}, err)
}

func TestAttributeByPath(t *testing.T) {
	registry := setupTestRegistry(t)

	attr, err := registry.AttributeByPath("User", "", "userName", "")
	require.NoError(t, err)
	assert.Equal(t, "userName", attr.Name)
	assert.Equal(t, TypeString, attr.Type)

	sub, err := registry.AttributeByPath("User", "", "emails", "value")
	require.NoError(t, err)
	assert.Equal(t, "value", sub.Name)

	ext, err := registry.AttributeByPath("User", EnterpriseUserURN, "employeeNumber", "")
	require.NoError(t, err)
	assert.Equal(t, "employeeNumber", ext.Name)

	_, err = registry.AttributeByPath("User", "", "nonexistent", "")
	require.Error(t, err)
	assert.IsType(t, AttributeNotFoundError{}, err)
}

func TestUniqueAttributes(t *testing.T) {
	registry := setupTestRegistry(t)

	unique := registry.UniqueAttributes("User")
	require.Len(t, unique, 1)
	assert.Equal(t, "userName", unique[0].Name)

	assert.Empty(t, registry.UniqueAttributes("Group"))
}
