package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validUserDoc() map[string]any {
	return map[string]any{
		"schemas":  []any{UserSchemaURN},
		"userName": "alice@example.com",
	}
}

func TestValidate_Create(t *testing.T) {
	registry := setupTestRegistry(t)

	normalized, err := registry.Validate("User", validUserDoc(), OpCreate)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", normalized["userName"])
	assert.Contains(t, normalized, AttrSchemas)
}

func TestValidate_SchemasLayer(t *testing.T) {
	registry := setupTestRegistry(t)

	tests := []struct {
		name string
		doc  map[string]any
		kind ValidationKind
	}{
		{
			name: "missing schemas",
			doc:  map[string]any{"userName": "alice@example.com"},
			kind: KindMissingSchemas,
		},
		{
			name: "empty schemas",
			doc:  map[string]any{"schemas": []any{}, "userName": "a@b.c"},
			kind: KindEmptySchemas,
		},
		{
			name: "unknown schema uri",
			doc: map[string]any{
				"schemas":  []any{"urn:example:Unknown"},
				"userName": "a@b.c",
			},
			kind: KindUnknownSchemaURI,
		},
		{
			name: "base schema not declared",
			doc: map[string]any{
				"schemas":  []any{EnterpriseUserURN},
				"userName": "a@b.c",
			},
			kind: KindMissingSchemas,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Validate("User", tt.doc, OpCreate)
			require.Error(t, err)

			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.kind, verr.Kind)
		})
	}
}

func TestValidate_StructuralLayer(t *testing.T) {
	registry := setupTestRegistry(t)

	tests := []struct {
		name  string
		attr  string
		value any
	}{
		{name: "string gets number", attr: "userName", value: float64(42)},
		{name: "boolean gets string", attr: "active", value: "yes"},
		{name: "multi-valued gets scalar", attr: "emails", value: "a@b.c"},
		{name: "complex gets string", attr: "name", value: "Alice Smith"},
		{name: "canonical value violation", attr: "emails", value: []any{
			map[string]any{"value": "a@b.c", "type": "carrier-pigeon"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validUserDoc()
			doc[tt.attr] = tt.value
			_, err := registry.Validate("User", doc, OpCreate)
			require.Error(t, err)

			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, KindInvalidAttributeType, verr.Kind)
		})
	}
}

func TestValidate_UnknownAttributesDropped(t *testing.T) {
	registry := setupTestRegistry(t)

	doc := validUserDoc()
	doc["favoriteColor"] = "purple"
	normalized, err := registry.Validate("User", doc, OpCreate)
	require.NoError(t, err)
	assert.NotContains(t, normalized, "favoriteColor")
}

func TestValidate_MissingRequired(t *testing.T) {
	registry := setupTestRegistry(t)

	doc := map[string]any{"schemas": []any{UserSchemaURN}}
	_, err := registry.Validate("User", doc, OpCreate)
	require.Error(t, err)

	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindMissingRequiredAttribute, verr.Kind)
	assert.Equal(t, "userName", verr.Attribute)
}

func TestValidate_CreateRejectsReadOnly(t *testing.T) {
	registry := setupTestRegistry(t)

	doc := validUserDoc()
	doc["groups"] = []any{map[string]any{"value": "g1"}}
	_, err := registry.Validate("User", doc, OpCreate)
	require.Error(t, err)

	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindMutabilityViolation, verr.Kind)
	assert.Equal(t, "groups", verr.Attribute)
}

func TestValidate_ReplaceDropsReadOnly(t *testing.T) {
	registry := setupTestRegistry(t)

	doc := validUserDoc()
	doc["groups"] = []any{map[string]any{"value": "g1"}}
	normalized, err := registry.Validate("User", doc, OpReplace)
	require.NoError(t, err)
	assert.NotContains(t, normalized, "groups")
}

func TestValidate_TwoPrimaries(t *testing.T) {
	registry := setupTestRegistry(t)

	doc := validUserDoc()
	doc["emails"] = []any{
		map[string]any{"value": "a@b.c", "primary": true},
		map[string]any{"value": "d@e.f", "primary": true},
	}
	_, err := registry.Validate("User", doc, OpCreate)
	require.Error(t, err)

	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindCustom, verr.Kind)
}

func TestValidate_ExtensionNamespace(t *testing.T) {
	registry := setupTestRegistry(t)

	doc := validUserDoc()
	doc["schemas"] = []any{UserSchemaURN, EnterpriseUserURN}
	doc[EnterpriseUserURN] = map[string]any{"employeeNumber": "E-1"}

	normalized, err := registry.Validate("User", doc, OpCreate)
	require.NoError(t, err)

	ns, ok := normalized[EnterpriseUserURN].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "E-1", ns["employeeNumber"])
}

func TestValidate_UndeclaredExtensionNamespace(t *testing.T) {
	registry := setupTestRegistry(t)

	doc := validUserDoc()
	doc[EnterpriseUserURN] = map[string]any{"employeeNumber": "E-1"}

	_, err := registry.Validate("User", doc, OpCreate)
	require.Error(t, err)

	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindUnknownSchemaURI, verr.Kind)
}

func TestValidate_DateTimeAndBinary(t *testing.T) {
	registry := setupTestRegistry(t)
	require.NoError(t, registry.RegisterDocument([]byte(`{
		"id": "urn:example:schemas:Badge",
		"name": "Badge",
		"attributes": [
			{"name": "issuedAt", "type": "dateTime"},
			{"name": "photo", "type": "binary"}
		]
	}`)))

	doc := map[string]any{
		"schemas":  []any{"urn:example:schemas:Badge"},
		"issuedAt": "2026-01-02T15:04:05Z",
		"photo":    "aGVsbG8=",
	}
	_, err := registry.Validate("Badge", doc, OpCreate)
	require.NoError(t, err)

	doc["issuedAt"] = "yesterday"
	_, err = registry.Validate("Badge", doc, OpCreate)
	require.Error(t, err)

	doc["issuedAt"] = "2026-01-02T15:04:05Z"
	doc["photo"] = "not base64!!"
	_, err = registry.Validate("Badge", doc, OpCreate)
	require.Error(t, err)
}

func TestCheckImmutable(t *testing.T) {
	registry := setupTestRegistry(t)
	require.NoError(t, registry.RegisterDocument([]byte(`{
		"id": "urn:example:schemas:Certificate",
		"name": "Certificate",
		"attributes": [
			{"name": "subject", "type": "string", "required": true, "mutability": "immutable"},
			{"name": "comment", "type": "string"}
		]
	}`)))

	current := map[string]any{
		"schemas": []any{"urn:example:schemas:Certificate"},
		"subject": "CN=alice",
		"comment": "original",
	}

	// Unchanged immutable value passes
	next := map[string]any{
		"schemas": []any{"urn:example:schemas:Certificate"},
		"subject": "CN=alice",
		"comment": "edited",
	}
	require.NoError(t, registry.CheckImmutable("Certificate", next, current))

	// Changing it fails
	next["subject"] = "CN=mallory"
	err := registry.CheckImmutable("Certificate", next, current)
	require.Error(t, err)

	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindMutabilityViolation, verr.Kind)
}

func TestOperationString(t *testing.T) {
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "replace", OpReplace.String())
	assert.Equal(t, "patch", OpPatch.String())
}
