package schema

import "fmt"

// ValidationKind classifies a document validation failure
type ValidationKind string

const (
	KindMissingRequiredAttribute ValidationKind = "missing_required_attribute"
	KindInvalidAttributeType     ValidationKind = "invalid_attribute_type"
	KindMissingSchemas           ValidationKind = "missing_schemas"
	KindEmptySchemas             ValidationKind = "empty_schemas"
	KindUnknownSchemaURI         ValidationKind = "unknown_schema_uri"
	KindMutabilityViolation      ValidationKind = "mutability_violation"
	KindUniquenessViolation      ValidationKind = "uniqueness_violation"
	KindCustom                   ValidationKind = "custom"
)

// ValidationError indicates a document failed schema validation
type ValidationError struct {
	Kind      ValidationKind
	Attribute string
	Detail    string
}

func (e ValidationError) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("validation failed (%s) for attribute %q: %s", e.Kind, e.Attribute, e.Detail)
	}
	return fmt.Sprintf("validation failed (%s): %s", e.Kind, e.Detail)
}

// SchemaNotFoundError indicates a schema URI is not registered
type SchemaNotFoundError struct {
	SchemaID string
}

func (e SchemaNotFoundError) Error() string {
	return fmt.Sprintf("schema not found: %s", e.SchemaID)
}

// InvalidSchemaError indicates a schema definition failed its shape checks
type InvalidSchemaError struct {
	SchemaID string
	Reason   string
}

func (e InvalidSchemaError) Error() string {
	return fmt.Sprintf("invalid schema %s: %s", e.SchemaID, e.Reason)
}

// SchemaConflictError indicates a registration collided with a different definition
type SchemaConflictError struct {
	SchemaID string
}

func (e SchemaConflictError) Error() string {
	return fmt.Sprintf("schema %s is already registered with a different definition", e.SchemaID)
}

// ResourceTypeNotFoundError indicates a resource type has no bound base schema
type ResourceTypeNotFoundError struct {
	ResourceType string
}

func (e ResourceTypeNotFoundError) Error() string {
	return fmt.Sprintf("resource type not registered: %s", e.ResourceType)
}

// AttributeNotFoundError indicates a path does not resolve to a declared attribute
type AttributeNotFoundError struct {
	ResourceType string
	Attribute    string
}

func (e AttributeNotFoundError) Error() string {
	return fmt.Sprintf("attribute %s is not declared for resource type %s", e.Attribute, e.ResourceType)
}

func missingRequired(attr string) ValidationError {
	return ValidationError{Kind: KindMissingRequiredAttribute, Attribute: attr, Detail: "required attribute is missing"}
}

func invalidType(attr, detail string) ValidationError {
	return ValidationError{Kind: KindInvalidAttributeType, Attribute: attr, Detail: detail}
}
