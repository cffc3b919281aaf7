package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/engine/internal/resource"
	"github.com/identra/engine/internal/schema"
	"github.com/identra/engine/internal/test"
)

func setupTestResource(t *testing.T) (*resource.Resource, *schema.Registry) {
	t.Helper()
	registry := test.Registry(t)
	res, err := resource.FromJSON(resource.TypeUser, test.FullUserDocument("alice@example.com"), registry)
	require.NoError(t, err)
	return res, registry
}

func emailByType(res *resource.Resource, typ string) *resource.Email {
	for i := range res.User.Emails {
		if res.User.Emails[i].Type == typ {
			return &res.User.Emails[i]
		}
	}
	return nil
}

func TestApply_ReplaceSingleValued(t *testing.T) {
	res, registry := setupTestResource(t)

	out, err := Apply(res, []Operation{
		{Op: OpReplace, Path: "displayName", Value: "New Name"},
	}, registry)
	require.NoError(t, err)

	assert.Equal(t, "New Name", out.User.DisplayName)
	// The input resource is untouched
	assert.Equal(t, "Test User", res.User.DisplayName)
}

func TestApply_AddSingleValued(t *testing.T) {
	res, registry := setupTestResource(t)

	out, err := Apply(res, []Operation{
		{Op: OpAdd, Path: "title", Value: "Engineer"},
	}, registry)
	require.NoError(t, err)
	assert.Equal(t, "Engineer", out.Attributes["title"])
}

func TestApply_ReplaceFilteredSub(t *testing.T) {
	res, registry := setupTestResource(t)

	out, err := Apply(res, []Operation{
		{Op: OpReplace, Path: `emails[type eq "work"].value`, Value: "new@example.com"},
	}, registry)
	require.NoError(t, err)

	work := emailByType(out, "work")
	require.NotNil(t, work)
	assert.Equal(t, "new@example.com", work.Value)

	// The other element is untouched
	home := emailByType(out, "home")
	require.NotNil(t, home)
	assert.Equal(t, "home@example.com", home.Value)
}

func TestApply_AddToMultiValued(t *testing.T) {
	res, registry := setupTestResource(t)

	out, err := Apply(res, []Operation{
		{Op: OpAdd, Path: "emails", Value: map[string]any{
			"value": "third@example.com",
			"type":  "other",
		}},
	}, registry)
	require.NoError(t, err)
	assert.Len(t, out.User.Emails, 3)
}

func TestApply_PrimaryAutoDemote(t *testing.T) {
	res, registry := setupTestResource(t)

	out, err := Apply(res, []Operation{
		{Op: OpAdd, Path: "emails", Value: map[string]any{
			"value":   "third@example.com",
			"type":    "other",
			"primary": true,
		}},
	}, registry)
	require.NoError(t, err)

	primaries := 0
	for _, email := range out.User.Emails {
		if email.Primary {
			primaries++
			assert.Equal(t, "other", email.Type)
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestApply_RemoveBareAttribute(t *testing.T) {
	res, registry := setupTestResource(t)

	out, err := Apply(res, []Operation{
		{Op: OpRemove, Path: "displayName"},
	}, registry)
	require.NoError(t, err)
	assert.Empty(t, out.User.DisplayName)
}

func TestApply_RemoveFilteredElement(t *testing.T) {
	res, registry := setupTestResource(t)

	out, err := Apply(res, []Operation{
		{Op: OpRemove, Path: `emails[type eq "home"]`},
	}, registry)
	require.NoError(t, err)

	require.Len(t, out.User.Emails, 1)
	assert.Equal(t, "work", out.User.Emails[0].Type)
}

func TestApply_RemoveLastElementDeletesAttribute(t *testing.T) {
	res, registry := setupTestResource(t)

	out, err := Apply(res, []Operation{
		{Op: OpRemove, Path: `emails[type eq "work"]`},
		{Op: OpRemove, Path: `emails[type eq "home"]`},
	}, registry)
	require.NoError(t, err)

	assert.Empty(t, out.User.Emails)
	assert.NotContains(t, out.Document(), "emails")
}

func TestApply_RemoveRequiredAttribute(t *testing.T) {
	res, registry := setupTestResource(t)

	_, err := Apply(res, []Operation{
		{Op: OpRemove, Path: "userName"},
	}, registry)
	require.Error(t, err)
	assert.IsType(t, MutabilityError{}, err)
}

func TestApply_ReadOnlyAttribute(t *testing.T) {
	res, registry := setupTestResource(t)

	_, err := Apply(res, []Operation{
		{Op: OpReplace, Path: "groups", Value: []any{map[string]any{"value": "g1"}}},
	}, registry)
	require.Error(t, err)
	assert.IsType(t, MutabilityError{}, err)
}

func TestApply_FilterMatchesNothing(t *testing.T) {
	res, registry := setupTestResource(t)

	_, err := Apply(res, []Operation{
		{Op: OpReplace, Path: `emails[type eq "pager"].value`, Value: "x@y.z"},
	}, registry)
	require.Error(t, err)

	var perr PathError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "no elements")
}

func TestApply_InvalidPath(t *testing.T) {
	res, registry := setupTestResource(t)

	_, err := Apply(res, []Operation{
		{Op: OpReplace, Path: "not..a..path", Value: "x"},
	}, registry)
	require.Error(t, err)
	assert.IsType(t, PathError{}, err)
}

func TestApply_UnknownAttribute(t *testing.T) {
	res, registry := setupTestResource(t)

	_, err := Apply(res, []Operation{
		{Op: OpAdd, Path: "favoriteColor", Value: "purple"},
	}, registry)
	require.Error(t, err)
}

func TestApply_TypeMismatch(t *testing.T) {
	res, registry := setupTestResource(t)

	_, err := Apply(res, []Operation{
		{Op: OpReplace, Path: "active", Value: "yes"},
	}, registry)
	require.Error(t, err)
}

func TestApply_PathlessAddExpands(t *testing.T) {
	res, registry := setupTestResource(t)

	out, err := Apply(res, []Operation{
		{Op: OpAdd, Value: map[string]any{
			"displayName": "Expanded",
			"title":       "Engineer",
		}},
	}, registry)
	require.NoError(t, err)
	assert.Equal(t, "Expanded", out.User.DisplayName)
	assert.Equal(t, "Engineer", out.Attributes["title"])
}

func TestApply_ExtensionPath(t *testing.T) {
	registry := test.Registry(t)
	doc := test.UserDocument("alice@example.com")
	doc["schemas"] = []any{schema.UserSchemaURN, schema.EnterpriseUserURN}
	doc[schema.EnterpriseUserURN] = map[string]any{"employeeNumber": "E-1"}

	res, err := resource.FromJSON(resource.TypeUser, doc, registry)
	require.NoError(t, err)

	out, err := Apply(res, []Operation{
		{Op: OpReplace, Path: schema.EnterpriseUserURN + ":employeeNumber", Value: "E-2"},
		{Op: OpAdd, Path: schema.EnterpriseUserURN + ":organization", Value: "Identra"},
	}, registry)
	require.NoError(t, err)

	ns := out.Extensions[schema.EnterpriseUserURN]
	require.NotNil(t, ns)
	assert.Equal(t, "E-2", ns["employeeNumber"])
	assert.Equal(t, "Identra", ns["organization"])
}

func TestApply_Atomicity(t *testing.T) {
	res, registry := setupTestResource(t)

	// Second operation fails phase one; nothing may be applied
	_, err := Apply(res, []Operation{
		{Op: OpReplace, Path: "displayName", Value: "Changed"},
		{Op: OpReplace, Path: "groups", Value: []any{}},
	}, registry)
	require.Error(t, err)

	assert.Equal(t, "Test User", res.User.DisplayName)
}

func TestApply_MetaUntouched(t *testing.T) {
	res, registry := setupTestResource(t)
	res.Meta.ResourceType = resource.TypeUser
	before := res.Meta

	out, err := Apply(res, []Operation{
		{Op: OpReplace, Path: "displayName", Value: "New"},
	}, registry)
	require.NoError(t, err)
	assert.Equal(t, before, out.Meta)
}

func TestParseOperations(t *testing.T) {
	data := []byte(`[
		{"op": "Replace", "path": "displayName", "value": "X"},
		{"op": "remove", "path": "emails[type eq \"home\"]"},
		{"op": "ADD", "value": {"title": "Engineer"}}
	]`)

	ops, err := ParseOperations(data)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, OpReplace, ops[0].Op)
	assert.Equal(t, OpRemove, ops[1].Op)
	assert.Equal(t, OpAdd, ops[2].Op)
	assert.Equal(t, "displayName", ops[0].Path)
}

func TestParseOperations_Invalid(t *testing.T) {
	_, err := ParseOperations([]byte(`{"op": "add"}`))
	require.Error(t, err)
}
