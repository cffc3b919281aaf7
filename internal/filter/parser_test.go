package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want Path
	}{
		{
			name: "bare attribute",
			expr: "userName",
			want: Path{Attribute: "userName"},
		},
		{
			name: "dotted sub-attribute",
			expr: "name.givenName",
			want: Path{Attribute: "name", Sub: "givenName"},
		},
		{
			name: "filtered with sub",
			expr: `emails[type eq "work"].value`,
			want: Path{
				Attribute: "emails",
				Filter:    &Comparison{Attribute: "type", Op: OpEqual, Value: "work"},
				Sub:       "value",
			},
		},
		{
			name: "filtered without sub",
			expr: `emails[type eq "work"]`,
			want: Path{
				Attribute: "emails",
				Filter:    &Comparison{Attribute: "type", Op: OpEqual, Value: "work"},
			},
		},
		{
			name: "extension-qualified",
			expr: "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User:organization",
			want: Path{
				Schema:    "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User",
				Attribute: "organization",
			},
		},
		{
			name: "extension-qualified with sub",
			expr: "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User:manager.value",
			want: Path{
				Schema:    "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User",
				Attribute: "manager",
				Sub:       "value",
			},
		},
		{
			name: "extension-qualified filter with colon in literal",
			expr: `urn:example:ext:User:emails[value eq "a:b"].type`,
			want: Path{
				Schema:    "urn:example:ext:User",
				Attribute: "emails",
				Filter:    &Comparison{Attribute: "value", Op: OpEqual, Value: "a:b"},
				Sub:       "type",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePath_RoundTrip(t *testing.T) {
	exprs := []string{
		"userName",
		"name.givenName",
		`emails[type eq "work"].value`,
		"urn:ietf:params:scim:schemas:extension:enterprise:2.0:User:organization",
	}
	for _, expr := range exprs {
		p, err := ParsePath(expr)
		require.NoError(t, err)
		assert.Equal(t, expr, p.String())
	}
}

func TestParsePath_Invalid(t *testing.T) {
	exprs := []string{
		"",
		"emails[type eq \"work\"",
		"emails[]",
		"emails[type zz \"work\"]",
		".value",
		"emails.",
		"not an attr",
	}
	for _, expr := range exprs {
		_, err := ParsePath(expr)
		require.Error(t, err, "expected parse failure for %q", expr)
		assert.IsType(t, ParseError{}, err)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want Comparison
	}{
		{
			name: "string equality",
			expr: `type eq "work"`,
			want: Comparison{Attribute: "type", Op: OpEqual, Value: "work"},
		},
		{
			name: "uppercase operator",
			expr: `type EQ "work"`,
			want: Comparison{Attribute: "type", Op: OpEqual, Value: "work"},
		},
		{
			name: "not equal",
			expr: `type ne "home"`,
			want: Comparison{Attribute: "type", Op: OpNotEqual, Value: "home"},
		},
		{
			name: "contains",
			expr: `value co "example"`,
			want: Comparison{Attribute: "value", Op: OpContains, Value: "example"},
		},
		{
			name: "starts with",
			expr: `value sw "alice"`,
			want: Comparison{Attribute: "value", Op: OpStartsWith, Value: "alice"},
		},
		{
			name: "present",
			expr: "value pr",
			want: Comparison{Attribute: "value", Op: OpPresent},
		},
		{
			name: "boolean operand",
			expr: "primary eq true",
			want: Comparison{Attribute: "primary", Op: OpEqual, Value: true},
		},
		{
			name: "numeric operand",
			expr: "weight eq 3",
			want: Comparison{Attribute: "weight", Op: OpEqual, Value: float64(3)},
		},
		{
			name: "dollar-prefixed attribute",
			expr: `$ref eq "Users/1"`,
			want: Comparison{Attribute: "$ref", Op: OpEqual, Value: "Users/1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestMatches(t *testing.T) {
	elem := map[string]any{
		"type":    "work",
		"value":   "alice@example.com",
		"primary": true,
		"weight":  float64(3),
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{name: "eq hit", expr: `type eq "work"`, want: true},
		{name: "eq case-insensitive value", expr: `type eq "WORK"`, want: true},
		{name: "eq case-insensitive attribute", expr: `TYPE eq "work"`, want: true},
		{name: "eq miss", expr: `type eq "home"`, want: false},
		{name: "ne", expr: `type ne "home"`, want: true},
		{name: "co hit", expr: `value co "example"`, want: true},
		{name: "co miss", expr: `value co "nothing"`, want: false},
		{name: "sw hit", expr: `value sw "alice"`, want: true},
		{name: "sw miss", expr: `value sw "bob"`, want: false},
		{name: "pr hit", expr: "value pr", want: true},
		{name: "pr missing attribute", expr: "display pr", want: false},
		{name: "boolean eq", expr: "primary eq true", want: true},
		{name: "numeric eq", expr: "weight eq 3", want: true},
		{name: "numeric ne", expr: "weight ne 4", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseFilter(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Matches(elem))
		})
	}
}

func TestMatches_NonObjectElement(t *testing.T) {
	c, err := ParseFilter(`type eq "work"`)
	require.NoError(t, err)
	assert.False(t, c.Matches("just a string"))
	assert.False(t, c.Matches(nil))
}
