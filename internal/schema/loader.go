package schema

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed embedded/*.json
var embeddedFS embed.FS

const metaSchemaFile = "embedded/metaschema.json"

// Schema URIs of the embedded core schemas
const (
	UserSchemaURN     = "urn:ietf:params:scim:schemas:core:2.0:User"
	GroupSchemaURN    = "urn:ietf:params:scim:schemas:core:2.0:Group"
	EnterpriseUserURN = "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User"
)

// schemaDocument is the interchange representation of a schema definition.
// The optional resourceType/extension fields bind extension schemas to the
// resource type they attach to.
type schemaDocument struct {
	SchemaDefinition
	// ResourceType names the resource type this schema binds to
	// (defaults to the schema name for base schemas)
	ResourceType string `json:"resourceType,omitempty"`
	// Extension marks this schema as an extension rather than a base schema
	Extension bool `json:"extension,omitempty"`
}

// documentValidator checks raw schema documents against the embedded
// meta-schema before they are decoded and registered.
type documentValidator struct {
	compiled *jsonschema.Schema
}

func newDocumentValidator() (*documentValidator, error) {
	data, err := embeddedFS.ReadFile(metaSchemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded meta-schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("metaschema.json", bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add meta-schema resource: %w", err)
	}
	compiled, err := compiler.Compile("metaschema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile meta-schema: %w", err)
	}

	return &documentValidator{compiled: compiled}, nil
}

func (v *documentValidator) validate(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("schema document is not valid JSON: %w", err)
	}
	if err := v.compiled.Validate(doc); err != nil {
		return fmt.Errorf("schema document failed meta-schema validation: %w", err)
	}
	return nil
}

// decodeDocument validates and decodes a raw schema document
func (v *documentValidator) decodeDocument(data []byte) (*schemaDocument, error) {
	if err := v.validate(data); err != nil {
		return nil, err
	}
	var doc schemaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema document: %w", err)
	}
	applyAttributeDefaults(doc.Attributes)
	if err := doc.SchemaDefinition.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// applyAttributeDefaults fills zero-valued enum fields with their defaults
func applyAttributeDefaults(attrs []AttributeDefinition) {
	for i := range attrs {
		if attrs[i].Mutability == "" {
			attrs[i].Mutability = MutabilityReadWrite
		}
		if attrs[i].Returned == "" {
			attrs[i].Returned = ReturnedDefault
		}
		if attrs[i].Uniqueness == "" {
			attrs[i].Uniqueness = UniquenessNone
		}
		applyAttributeDefaults(attrs[i].SubAttributes)
	}
}

// loadEmbedded loads the default schema documents shipped with the engine
func (r *Registry) loadEmbedded() error {
	entries, err := embeddedFS.ReadDir("embedded")
	if err != nil {
		return fmt.Errorf("failed to read embedded schemas: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := "embedded/" + entry.Name()
		if name == metaSchemaFile {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := embeddedFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read embedded schema %s: %w", name, err)
		}
		if err := r.registerDocumentLocked(data); err != nil {
			return fmt.Errorf("failed to load embedded schema %s: %w", name, err)
		}
	}
	return nil
}

// loadDir loads all *.json schema documents from a directory
func (r *Registry) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read schema directory %s: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read schema file %s: %w", path, err)
		}
		if err := r.registerDocumentLocked(data); err != nil {
			return fmt.Errorf("failed to load schema file %s: %w", path, err)
		}
		loaded++
	}

	if loaded == 0 {
		return fmt.Errorf("schema directory %s contains no schema documents", dir)
	}
	return nil
}
