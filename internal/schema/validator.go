package schema

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// AttrSchemas is the canonical name of the schemas declaration attribute
const AttrSchemas = "schemas"

// Common attributes handled by the engine rather than by schema-declared
// attribute definitions.
const (
	AttrID         = "id"
	AttrExternalID = "externalId"
	AttrMeta       = "meta"
)

func isCommonAttribute(name string) bool {
	switch name {
	case AttrSchemas, AttrID, AttrExternalID, AttrMeta:
		return true
	}
	return false
}

// isExtensionKey reports whether a document key addresses an extension
// namespace rather than a core attribute.
func isExtensionKey(name string) bool {
	return strings.HasPrefix(name, "urn:")
}

// Validate runs the layered validation pipeline over a document and
// returns the normalized form (canonical attribute casing, unknown
// attributes dropped). The layers short-circuit in order: syntactic
// (schemas declaration), structural (types and multiplicity), then
// operational (required/mutability rules for the given operation).
func (r *Registry) Validate(resourceType string, doc map[string]any, op Operation) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base, err := r.baseSchemaLocked(resourceType)
	if err != nil {
		return nil, err
	}

	declared, err := r.checkSchemasDeclaration(resourceType, base, doc)
	if err != nil {
		return nil, err
	}

	normalized, err := r.checkStructure(resourceType, base, declared, doc)
	if err != nil {
		return nil, err
	}

	if err := r.checkOperational(base, declared, doc, normalized, op); err != nil {
		return nil, err
	}

	return normalized, nil
}

// checkSchemasDeclaration is the syntactic layer: the schemas array must
// be present, non-empty, include the base schema URI, and reference only
// schemas registered for this resource type.
func (r *Registry) checkSchemasDeclaration(resourceType string, base *SchemaDefinition, doc map[string]any) ([]string, error) {
	raw, ok := doc[AttrSchemas]
	if !ok {
		return nil, ValidationError{Kind: KindMissingSchemas, Attribute: AttrSchemas, Detail: "schemas declaration is missing"}
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, invalidType(AttrSchemas, "schemas must be an array of URIs")
	}
	if len(list) == 0 {
		return nil, ValidationError{Kind: KindEmptySchemas, Attribute: AttrSchemas, Detail: "schemas declaration is empty"}
	}

	b := r.bindings[resourceType]
	declared := make([]string, 0, len(list))
	hasBase := false
	for _, entry := range list {
		uri, ok := entry.(string)
		if !ok {
			return nil, invalidType(AttrSchemas, "schemas entries must be strings")
		}
		if _, registered := r.schemas[uri]; !registered {
			return nil, ValidationError{Kind: KindUnknownSchemaURI, Attribute: AttrSchemas, Detail: "unknown schema URI " + uri}
		}
		if uri == base.ID {
			hasBase = true
		} else if !containsString(b.extensions, uri) {
			return nil, ValidationError{Kind: KindUnknownSchemaURI, Attribute: AttrSchemas,
				Detail: "schema " + uri + " is not registered for resource type " + resourceType}
		}
		if !containsString(declared, uri) {
			declared = append(declared, uri)
		}
	}
	if !hasBase {
		return nil, ValidationError{Kind: KindMissingSchemas, Attribute: AttrSchemas,
			Detail: "schemas must include the base schema " + base.ID}
	}

	return declared, nil
}

// checkStructure is the structural layer: every present attribute must
// match its declared type and multiplicity. It returns the normalized
// document.
func (r *Registry) checkStructure(resourceType string, base *SchemaDefinition, declared []string, doc map[string]any) (map[string]any, error) {
	normalized := make(map[string]any, len(doc))

	schemas := make([]any, 0, len(declared))
	for _, uri := range declared {
		schemas = append(schemas, uri)
	}
	normalized[AttrSchemas] = schemas

	if id, ok := doc[AttrID]; ok {
		s, isString := id.(string)
		if !isString {
			return nil, invalidType(AttrID, "id must be a string")
		}
		normalized[AttrID] = s
	}
	if ext, ok := doc[AttrExternalID]; ok {
		s, isString := ext.(string)
		if !isString {
			return nil, invalidType(AttrExternalID, "externalId must be a string")
		}
		normalized[AttrExternalID] = s
	}

	// Core attributes
	for key, value := range doc {
		if isCommonAttribute(key) || isExtensionKey(key) {
			continue
		}
		attr := base.Attribute(key)
		if attr == nil {
			// Unknown attributes are dropped rather than rejected
			continue
		}
		checked, err := validateValue(attr, value, attr.Name)
		if err != nil {
			return nil, err
		}
		normalized[attr.Name] = checked
	}

	// Extension namespaces: every urn-keyed object must be declared in
	// the schemas array and validate against its extension schema.
	for key, value := range doc {
		if !isExtensionKey(key) {
			continue
		}
		if !containsString(declared, key) {
			return nil, ValidationError{Kind: KindUnknownSchemaURI, Attribute: key,
				Detail: "extension namespace is not declared in schemas"}
		}
		ext := r.schemas[key]
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, invalidType(key, "extension namespace must be an object")
		}
		normalizedExt := make(map[string]any, len(obj))
		for subKey, subValue := range obj {
			attr := ext.Attribute(subKey)
			if attr == nil {
				continue
			}
			checked, err := validateValue(attr, subValue, key+":"+attr.Name)
			if err != nil {
				return nil, err
			}
			normalizedExt[attr.Name] = checked
		}
		normalized[key] = normalizedExt
	}

	return normalized, nil
}

// checkOperational is the operational layer: create and replace require
// the full required attribute set; create additionally rejects
// caller-supplied readOnly attributes. Patch validates an
// engine-produced document, so only required-set completeness applies.
func (r *Registry) checkOperational(base *SchemaDefinition, declared []string, doc, normalized map[string]any, op Operation) error {
	if err := checkRequired(base.Attributes, normalized, ""); err != nil {
		return err
	}
	for _, uri := range declared {
		ext := r.schemas[uri]
		if ext.ID == base.ID {
			continue
		}
		ns, _ := normalized[uri].(map[string]any)
		if ns == nil {
			ns = map[string]any{}
		}
		if err := checkRequiredExtension(ext.Attributes, ns, uri); err != nil {
			return err
		}
	}

	if op == OpCreate {
		for _, attr := range base.Attributes {
			if attr.Mutability != MutabilityReadOnly {
				continue
			}
			if _, supplied := lookupFold(doc, attr.Name); supplied {
				return ValidationError{Kind: KindMutabilityViolation, Attribute: attr.Name,
					Detail: "attribute is readOnly and cannot be supplied by the caller"}
			}
		}
	}

	if op == OpReplace {
		// readOnly attributes are server-owned; drop them from the
		// normalized replacement instead of failing the request.
		for _, attr := range base.Attributes {
			if attr.Mutability == MutabilityReadOnly {
				delete(normalized, attr.Name)
			}
		}
	}

	return nil
}

// checkRequired verifies required attributes (and required sub-attributes
// of present complex values) exist in the normalized document.
func checkRequired(attrs []AttributeDefinition, doc map[string]any, prefix string) error {
	for i := range attrs {
		attr := &attrs[i]
		name := attr.Name
		if prefix != "" {
			name = prefix + "." + attr.Name
		}
		value, present := doc[attr.Name]
		if !present || value == nil {
			if attr.Required {
				return missingRequired(name)
			}
			continue
		}
		if attr.Type != TypeComplex || attr.MultiValued {
			continue
		}
		if sub, ok := value.(map[string]any); ok {
			if err := checkRequired(attr.SubAttributes, sub, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkRequiredExtension(attrs []AttributeDefinition, ns map[string]any, uri string) error {
	for i := range attrs {
		if !attrs[i].Required {
			continue
		}
		if value, ok := ns[attrs[i].Name]; !ok || value == nil {
			return missingRequired(uri + ":" + attrs[i].Name)
		}
	}
	return nil
}

// validateValue checks a single attribute value against its definition
// and returns the normalized value.
func validateValue(attr *AttributeDefinition, value any, path string) (any, error) {
	if value == nil {
		return nil, nil
	}

	if attr.MultiValued {
		list, ok := value.([]any)
		if !ok {
			return nil, invalidType(path, "attribute is multi-valued and requires an array")
		}
		normalized := make([]any, 0, len(list))
		primaries := 0
		for i, elem := range list {
			checked, err := validateSingle(attr, elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			if obj, ok := checked.(map[string]any); ok {
				if primary, _ := obj["primary"].(bool); primary {
					primaries++
				}
			}
			normalized = append(normalized, checked)
		}
		if primaries > 1 {
			return nil, ValidationError{Kind: KindCustom, Attribute: path,
				Detail: "at most one element may be marked primary"}
		}
		return normalized, nil
	}

	return validateSingle(attr, value, path)
}

func validateSingle(attr *AttributeDefinition, value any, path string) (any, error) {
	switch attr.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, invalidType(path, "expected a string")
		}
		if len(attr.CanonicalValues) > 0 && !matchesCanonical(attr, s) {
			return nil, invalidType(path, fmt.Sprintf("value %q is not one of the canonical values", s))
		}
		return s, nil

	case TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, invalidType(path, "expected a boolean")
		}
		return b, nil

	case TypeInteger:
		switch n := value.(type) {
		case float64:
			if n != float64(int64(n)) {
				return nil, invalidType(path, "expected an integer")
			}
			return n, nil
		case int, int32, int64:
			return value, nil
		}
		return nil, invalidType(path, "expected an integer")

	case TypeDecimal:
		switch value.(type) {
		case float64, int, int32, int64:
			return value, nil
		}
		return nil, invalidType(path, "expected a number")

	case TypeDateTime:
		s, ok := value.(string)
		if !ok {
			return nil, invalidType(path, "expected an RFC 3339 timestamp string")
		}
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return nil, invalidType(path, "invalid RFC 3339 timestamp: "+s)
		}
		return s, nil

	case TypeBinary:
		s, ok := value.(string)
		if !ok {
			return nil, invalidType(path, "expected a base64 string")
		}
		if _, err := base64.StdEncoding.DecodeString(s); err != nil {
			return nil, invalidType(path, "invalid base64 value")
		}
		return s, nil

	case TypeReference:
		s, ok := value.(string)
		if !ok || s == "" {
			return nil, invalidType(path, "expected a non-empty reference string")
		}
		return s, nil

	case TypeComplex:
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, invalidType(path, "expected an object")
		}
		normalized := make(map[string]any, len(obj))
		for key, subValue := range obj {
			sub := attr.SubAttribute(key)
			if sub == nil {
				continue
			}
			checked, err := validateValue(sub, subValue, path+"."+sub.Name)
			if err != nil {
				return nil, err
			}
			normalized[sub.Name] = checked
		}
		return normalized, nil
	}

	return nil, invalidType(path, "unsupported attribute type "+string(attr.Type))
}

// matchesCanonical compares against canonical values honoring caseExact
func matchesCanonical(attr *AttributeDefinition, value string) bool {
	for _, canonical := range attr.CanonicalValues {
		if attr.CaseExact {
			if canonical == value {
				return true
			}
		} else if strings.EqualFold(canonical, value) {
			return true
		}
	}
	return false
}

// CheckImmutable compares a replacement document against the currently
// stored document and fails when an immutable attribute would change.
func (r *Registry) CheckImmutable(resourceType string, doc, current map[string]any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base, err := r.baseSchemaLocked(resourceType)
	if err != nil {
		return err
	}

	for i := range base.Attributes {
		attr := &base.Attributes[i]
		if attr.Mutability != MutabilityImmutable {
			continue
		}
		existing, hadValue := current[attr.Name]
		if !hadValue || existing == nil {
			continue
		}
		replacement, supplied := doc[attr.Name]
		if !supplied {
			continue
		}
		if !reflect.DeepEqual(existing, replacement) {
			return ValidationError{Kind: KindMutabilityViolation, Attribute: attr.Name,
				Detail: "attribute is immutable and cannot be changed"}
		}
	}
	return nil
}

// AttributeByPath resolves an attribute definition by schema URI (empty
// for the base schema), attribute name, and optional sub-attribute name.
func (r *Registry) AttributeByPath(resourceType, schemaURI, attrName, subName string) (*AttributeDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var def *SchemaDefinition
	if schemaURI == "" {
		base, err := r.baseSchemaLocked(resourceType)
		if err != nil {
			return nil, err
		}
		def = base
	} else {
		var ok bool
		def, ok = r.schemas[schemaURI]
		if !ok {
			return nil, SchemaNotFoundError{SchemaID: schemaURI}
		}
		b := r.bindings[resourceType]
		if b == nil || (schemaURI != b.base && !containsString(b.extensions, schemaURI)) {
			return nil, SchemaNotFoundError{SchemaID: schemaURI}
		}
	}

	attr := def.Attribute(attrName)
	if attr == nil {
		return nil, AttributeNotFoundError{ResourceType: resourceType, Attribute: attrName}
	}
	if subName == "" {
		return attr, nil
	}
	sub := attr.SubAttribute(subName)
	if sub == nil {
		return nil, AttributeNotFoundError{ResourceType: resourceType, Attribute: attrName + "." + subName}
	}
	return sub, nil
}

// UniqueAttributes returns the base-schema attributes with a uniqueness
// constraint, used by providers to enforce server/global uniqueness.
func (r *Registry) UniqueAttributes(resourceType string) []AttributeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base, err := r.baseSchemaLocked(resourceType)
	if err != nil {
		return nil
	}
	unique := make([]AttributeDefinition, 0, 1)
	for _, attr := range base.Attributes {
		if attr.Uniqueness != UniquenessNone && !attr.MultiValued && attr.Type == TypeString {
			unique = append(unique, attr)
		}
	}
	return unique
}

// ValidateValue checks a value against an attribute definition
// (honoring multiplicity) and returns the normalized value.
func ValidateValue(attr *AttributeDefinition, value any, path string) (any, error) {
	return validateValue(attr, value, path)
}

// ValidateElement checks a single element of a multi-valued attribute
// against the attribute definition and returns the normalized element.
func ValidateElement(attr *AttributeDefinition, value any, path string) (any, error) {
	return validateSingle(attr, value, path)
}

// lookupFold finds a document key case-insensitively
func lookupFold(doc map[string]any, name string) (any, bool) {
	if v, ok := doc[name]; ok {
		return v, true
	}
	for key, v := range doc {
		if strings.EqualFold(key, name) {
			return v, true
		}
	}
	return nil, false
}

func containsString(list []string, s string) bool {
	for _, entry := range list {
		if entry == s {
			return true
		}
	}
	return false
}
