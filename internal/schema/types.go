package schema

import "strings"

// AttributeType represents the data type of an attribute
type AttributeType string

const (
	// TypeString is a UTF-8 string attribute
	TypeString AttributeType = "string"
	// TypeBoolean is a true/false attribute
	TypeBoolean AttributeType = "boolean"
	// TypeDecimal is a real number attribute
	TypeDecimal AttributeType = "decimal"
	// TypeInteger is a whole number attribute
	TypeInteger AttributeType = "integer"
	// TypeDateTime is an RFC 3339 timestamp attribute
	TypeDateTime AttributeType = "dateTime"
	// TypeBinary is a base64-encoded binary attribute
	TypeBinary AttributeType = "binary"
	// TypeReference is a URI reference to another resource
	TypeReference AttributeType = "reference"
	// TypeComplex is a structured attribute with sub-attributes
	TypeComplex AttributeType = "complex"
)

// Mutability defines how an attribute may change after creation
type Mutability string

const (
	// MutabilityReadOnly attributes are set only by the service
	MutabilityReadOnly Mutability = "readOnly"
	// MutabilityReadWrite attributes may be set and changed by clients
	MutabilityReadWrite Mutability = "readWrite"
	// MutabilityImmutable attributes may be set once and never changed
	MutabilityImmutable Mutability = "immutable"
	// MutabilityWriteOnly attributes may be set but are never returned
	MutabilityWriteOnly Mutability = "writeOnly"
)

// Returned defines when an attribute is included in responses
type Returned string

const (
	ReturnedAlways  Returned = "always"
	ReturnedNever   Returned = "never"
	ReturnedDefault Returned = "default"
	ReturnedRequest Returned = "request"
)

// Uniqueness defines the uniqueness scope of an attribute value
type Uniqueness string

const (
	UniquenessNone   Uniqueness = "none"
	UniquenessServer Uniqueness = "server"
	UniquenessGlobal Uniqueness = "global"
)

// Operation identifies the validation context for a document
type Operation int

const (
	// OpCreate validates a caller-supplied document for resource creation
	OpCreate Operation = iota
	// OpReplace validates a caller-supplied document for full replacement
	OpReplace
	// OpPatch validates an engine-produced document after patch application
	OpPatch
)

func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpReplace:
		return "replace"
	case OpPatch:
		return "patch"
	}
	return "unknown"
}

// AttributeDefinition describes a single attribute within a schema
type AttributeDefinition struct {
	// Name is the attribute name as it appears in documents
	Name string `json:"name"`
	// Type is the attribute data type
	Type AttributeType `json:"type"`
	// Description is a human-readable description
	Description string `json:"description,omitempty"`
	// MultiValued indicates the attribute holds a list of values
	MultiValued bool `json:"multiValued"`
	// Required indicates the attribute must be present on create/replace
	Required bool `json:"required"`
	// CaseExact indicates string comparisons are case-sensitive
	CaseExact bool `json:"caseExact"`
	// Mutability defines how the attribute may change
	Mutability Mutability `json:"mutability"`
	// Returned defines when the attribute appears in responses
	Returned Returned `json:"returned"`
	// Uniqueness defines the uniqueness scope of the attribute value
	Uniqueness Uniqueness `json:"uniqueness"`
	// CanonicalValues restricts string values to a fixed set (non-normative)
	CanonicalValues []string `json:"canonicalValues,omitempty"`
	// SubAttributes lists nested attributes (complex type only)
	SubAttributes []AttributeDefinition `json:"subAttributes,omitempty"`
	// ReferenceTypes lists the resource types a reference may point to
	ReferenceTypes []string `json:"referenceTypes,omitempty"`
}

// SchemaDefinition describes a resource schema
type SchemaDefinition struct {
	// ID is the schema URI, unique within the registry
	ID string `json:"id"`
	// Name is the schema name (e.g. "User")
	Name string `json:"name"`
	// Description is a human-readable description
	Description string `json:"description,omitempty"`
	// Attributes is the ordered list of attribute definitions
	Attributes []AttributeDefinition `json:"attributes"`
}

// SubAttribute returns the sub-attribute definition with the given name,
// matched case-insensitively. Returns nil when absent or non-complex.
func (a *AttributeDefinition) SubAttribute(name string) *AttributeDefinition {
	for i := range a.SubAttributes {
		if strings.EqualFold(a.SubAttributes[i].Name, name) {
			return &a.SubAttributes[i]
		}
	}
	return nil
}

// Attribute returns the attribute definition with the given name,
// matched case-insensitively. Returns nil when absent.
func (s *SchemaDefinition) Attribute(name string) *AttributeDefinition {
	for i := range s.Attributes {
		if strings.EqualFold(s.Attributes[i].Name, name) {
			return &s.Attributes[i]
		}
	}
	return nil
}

// Validate checks the internal shape invariants of a schema definition
func (s *SchemaDefinition) Validate() error {
	if s.ID == "" {
		return InvalidSchemaError{SchemaID: s.ID, Reason: "schema id cannot be empty"}
	}
	if s.Name == "" {
		return InvalidSchemaError{SchemaID: s.ID, Reason: "schema name cannot be empty"}
	}
	if len(s.Attributes) == 0 {
		return InvalidSchemaError{SchemaID: s.ID, Reason: "schema must declare at least one attribute"}
	}
	for i := range s.Attributes {
		if err := validateAttribute(s.ID, &s.Attributes[i], 0); err != nil {
			return err
		}
	}
	return nil
}

// maxSubAttributeDepth caps sub-attribute nesting; the protocol only
// allows one level of sub-attributes under a complex attribute.
const maxSubAttributeDepth = 1

func validateAttribute(schemaID string, attr *AttributeDefinition, depth int) error {
	if attr.Name == "" {
		return InvalidSchemaError{SchemaID: schemaID, Reason: "attribute name cannot be empty"}
	}
	switch attr.Type {
	case TypeString, TypeBoolean, TypeDecimal, TypeInteger, TypeDateTime, TypeBinary, TypeReference, TypeComplex:
	default:
		return InvalidSchemaError{SchemaID: schemaID, Reason: "attribute " + attr.Name + " has invalid type " + string(attr.Type)}
	}
	if attr.Type == TypeComplex {
		if len(attr.SubAttributes) == 0 {
			return InvalidSchemaError{SchemaID: schemaID, Reason: "complex attribute " + attr.Name + " must declare at least one sub-attribute"}
		}
		if depth >= maxSubAttributeDepth {
			return InvalidSchemaError{SchemaID: schemaID, Reason: "attribute " + attr.Name + " exceeds maximum sub-attribute nesting"}
		}
		for i := range attr.SubAttributes {
			if err := validateAttribute(schemaID, &attr.SubAttributes[i], depth+1); err != nil {
				return err
			}
		}
	} else if len(attr.SubAttributes) > 0 {
		return InvalidSchemaError{SchemaID: schemaID, Reason: "attribute " + attr.Name + " declares sub-attributes but is not complex"}
	}
	if len(attr.CanonicalValues) > 0 && attr.Type != TypeString {
		return InvalidSchemaError{SchemaID: schemaID, Reason: "attribute " + attr.Name + " declares canonical values but is not a string"}
	}
	return nil
}

