package etag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_Deterministic(t *testing.T) {
	content := map[string]any{
		"schemas":  []any{"urn:example:User"},
		"userName": "alice@example.com",
		"active":   true,
	}

	v1, err := Compute(content)
	require.NoError(t, err)
	v2, err := Compute(content)
	require.NoError(t, err)

	assert.False(t, v1.IsZero())
	assert.True(t, Equal(v1, v2))
}

func TestCompute_KeyOrderIndependent(t *testing.T) {
	// Maps iterate in random order; canonicalization must make the hash
	// independent of it, including in nested objects.
	a := map[string]any{
		"userName": "alice",
		"name":     map[string]any{"givenName": "Alice", "familyName": "Smith"},
	}
	b := map[string]any{
		"name":     map[string]any{"familyName": "Smith", "givenName": "Alice"},
		"userName": "alice",
	}

	va, err := Compute(a)
	require.NoError(t, err)
	vb, err := Compute(b)
	require.NoError(t, err)
	assert.True(t, Equal(va, vb))
}

func TestCompute_ArrayOrderPreserving(t *testing.T) {
	a := map[string]any{"emails": []any{"a@x.com", "b@x.com"}}
	b := map[string]any{"emails": []any{"b@x.com", "a@x.com"}}

	va, err := Compute(a)
	require.NoError(t, err)
	vb, err := Compute(b)
	require.NoError(t, err)
	assert.False(t, Equal(va, vb))
}

func TestCompute_ContentChangeChangesVersion(t *testing.T) {
	v1, err := Compute(map[string]any{"userName": "alice"})
	require.NoError(t, err)
	v2, err := Compute(map[string]any{"userName": "bob"})
	require.NoError(t, err)
	assert.False(t, Equal(v1, v2))
}

func TestCompute_ExcludesMetaVersion(t *testing.T) {
	content := map[string]any{
		"userName": "alice",
		"meta": map[string]any{
			"resourceType": "User",
		},
	}
	v1, err := Compute(content)
	require.NoError(t, err)

	// Embedding the computed version must not change the hash
	content["meta"].(map[string]any)["version"] = v1.String()
	v2, err := Compute(content)
	require.NoError(t, err)
	assert.True(t, Equal(v1, v2))

	// The input is left untouched
	assert.Contains(t, content["meta"].(map[string]any), "version")
}

func TestRawHTTPRoundTrip(t *testing.T) {
	raw := RawFromString("3f2a9c")
	http := HTTPFrom(raw)

	assert.Equal(t, `W/"3f2a9c"`, http.String())
	assert.Equal(t, raw, RawFrom(http))
	assert.True(t, Equal(raw, http))
}

func TestParseHTTP(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "weak quoted", input: `W/"abc123"`, want: "abc123"},
		{name: "lowercase weak", input: `w/"abc123"`, want: "abc123"},
		{name: "bare quoted", input: `"abc123"`, want: "abc123"},
		{name: "undecorated", input: "abc123", want: "abc123"},
		{name: "surrounding space", input: `  W/"abc123"  `, want: "abc123"},
		{name: "empty", input: "", wantErr: true},
		{name: "only decoration", input: `W/""`, wantErr: true},
		{name: "unbalanced quote", input: `W/"abc`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseHTTP(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.IsType(t, InvalidTagError{}, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, RawFrom(parsed).String())
		})
	}
}

func TestEqual_CrossFormat(t *testing.T) {
	raw := RawFromString("deadbeef")
	parsed, err := ParseHTTP(`W/"deadbeef"`)
	require.NoError(t, err)

	// The caller never needs to know which form the other side used
	assert.True(t, Equal(raw, parsed))
	assert.True(t, Equal(parsed, raw))
	assert.False(t, Equal(raw, RawFromString("cafe")))
}
