package filter

// Operator represents a comparison operator in a filter expression
type Operator string

const (
	// OpEqual matches values that compare equal
	OpEqual Operator = "eq"
	// OpNotEqual matches values that do not compare equal
	OpNotEqual Operator = "ne"
	// OpContains matches strings containing the operand
	OpContains Operator = "co"
	// OpStartsWith matches strings starting with the operand
	OpStartsWith Operator = "sw"
	// OpPresent matches when the attribute has a non-empty value
	OpPresent Operator = "pr"
)

// Comparison is a single-predicate filter of the form `attr op value`
// (or `attr pr`, which takes no operand)
type Comparison struct {
	// Attribute is the sub-attribute the predicate tests
	Attribute string
	// Op is the comparison operator
	Op Operator
	// Value is the operand (nil for pr)
	Value any
}

// Path is a parsed attribute path expression, e.g.
//
//	userName
//	name.givenName
//	emails[type eq "work"].value
//	urn:ietf:params:scim:schemas:extension:enterprise:2.0:User:organization
type Path struct {
	// Schema is the extension schema URI prefix (empty for core attributes)
	Schema string
	// Attribute is the top-level attribute name
	Attribute string
	// Filter is the optional bracketed value filter
	Filter *Comparison
	// Sub is the optional sub-attribute following the filter or a dot
	Sub string
}

// String reconstructs the canonical textual form of the path
func (p Path) String() string {
	s := p.Attribute
	if p.Schema != "" {
		s = p.Schema + ":" + s
	}
	if p.Filter != nil {
		s += "[" + p.Filter.String() + "]"
	}
	if p.Sub != "" {
		s += "." + p.Sub
	}
	return s
}

// String reconstructs the textual form of the comparison
func (c Comparison) String() string {
	if c.Op == OpPresent {
		return c.Attribute + " pr"
	}
	if s, ok := c.Value.(string); ok {
		return c.Attribute + " " + string(c.Op) + " \"" + s + "\""
	}
	return c.Attribute + " " + string(c.Op) + " " + literalString(c.Value)
}
