package schema

import (
	"reflect"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/identra/engine/internal/logger"
	"github.com/identra/engine/internal/metrics"
)

// binding ties a resource type name to its base schema and any
// registered extension schemas.
type binding struct {
	base       string
	extensions []string
}

// Registry holds schema definitions and resource type bindings.
// Reads are guarded by an RWMutex so they never block behind each other;
// registrations serialize among themselves and are expected only at
// startup or rare administrative moments.
type Registry struct {
	mu           sync.RWMutex
	schemas      map[string]*SchemaDefinition
	bindings     map[string]*binding
	docValidator *documentValidator
	metrics      *metrics.ProviderMetrics
	log          zerolog.Logger
}

// SetMetrics attaches an optional metrics sink; registrations after this
// call increment the schema registration counter.
func (r *Registry) SetMetrics(m *metrics.ProviderMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

func newRegistry() (*Registry, error) {
	docValidator, err := newDocumentValidator()
	if err != nil {
		return nil, err
	}
	return &Registry{
		schemas:      make(map[string]*SchemaDefinition),
		bindings:     make(map[string]*binding),
		docValidator: docValidator,
		log:          logger.WithComponent("schema-registry"),
	}, nil
}

// NewRegistry creates a registry pre-loaded with the embedded default
// schemas (core User, core Group, enterprise User extension).
func NewRegistry() (*Registry, error) {
	r, err := newRegistry()
	if err != nil {
		return nil, err
	}
	if err := r.loadEmbedded(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewRegistryFromDir creates a registry loaded from a directory of schema
// documents instead of the embedded defaults. Exactly one of the two
// sources is active per registry instance.
func NewRegistryFromDir(dir string) (*Registry, error) {
	r, err := newRegistry()
	if err != nil {
		return nil, err
	}
	if err := r.loadDir(dir); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterDocument validates a raw schema document against the meta-schema,
// decodes it, and registers it. Extension documents (extension: true) are
// bound to the resource type they name.
func (r *Registry) RegisterDocument(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerDocumentLocked(data)
}

func (r *Registry) registerDocumentLocked(data []byte) error {
	doc, err := r.docValidator.decodeDocument(data)
	if err != nil {
		return err
	}

	resourceType := doc.ResourceType
	if resourceType == "" {
		resourceType = doc.Name
	}

	if doc.Extension {
		return r.registerExtensionLocked(resourceType, &doc.SchemaDefinition)
	}
	return r.registerLocked(resourceType, &doc.SchemaDefinition)
}

// Register registers a base schema definition for the resource type named
// by the schema. Re-registering an identical definition is a no-op; a
// colliding id with a different definition is a conflict.
func (r *Registry) Register(def *SchemaDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(def.Name, def)
}

// RegisterExtension registers an extension schema and binds it to the
// given resource type.
func (r *Registry) RegisterExtension(resourceType string, def *SchemaDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerExtensionLocked(resourceType, def)
}

func (r *Registry) registerLocked(resourceType string, def *SchemaDefinition) error {
	// Check the binding before storing so a rejected registration leaves
	// no trace in the schema map.
	if b, ok := r.bindings[resourceType]; ok && b.base != "" && b.base != def.ID {
		return SchemaConflictError{SchemaID: def.ID}
	}
	if err := r.storeLocked(def); err != nil {
		return err
	}

	b, ok := r.bindings[resourceType]
	if !ok {
		b = &binding{}
		r.bindings[resourceType] = b
	}
	b.base = def.ID

	r.metrics.RecordSchemaRegistration(def.ID)
	r.log.Info().
		Str("schema_id", def.ID).
		Str("resource_type", resourceType).
		Msg("Schema registered")
	return nil
}

func (r *Registry) registerExtensionLocked(resourceType string, def *SchemaDefinition) error {
	bound := false
	if b, ok := r.bindings[resourceType]; ok {
		for _, existing := range b.extensions {
			if existing == def.ID {
				bound = true
				break
			}
		}
	}
	if err := r.storeLocked(def); err != nil {
		return err
	}
	if bound {
		return nil
	}

	b, ok := r.bindings[resourceType]
	if !ok {
		b = &binding{}
		r.bindings[resourceType] = b
	}
	b.extensions = append(b.extensions, def.ID)

	r.metrics.RecordSchemaRegistration(def.ID)
	r.log.Info().
		Str("schema_id", def.ID).
		Str("resource_type", resourceType).
		Msg("Extension schema registered")
	return nil
}

func (r *Registry) storeLocked(def *SchemaDefinition) error {
	if existing, ok := r.schemas[def.ID]; ok {
		if reflect.DeepEqual(existing, def) {
			return nil
		}
		return SchemaConflictError{SchemaID: def.ID}
	}
	r.schemas[def.ID] = def
	return nil
}

// Get retrieves a schema definition by its URI
func (r *Registry) Get(id string) (*SchemaDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.schemas[id]
	return def, ok
}

// List returns all registered schema definitions ordered by id
func (r *Registry) List() []*SchemaDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*SchemaDefinition, 0, len(r.schemas))
	for _, def := range r.schemas {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// BaseSchema returns the base schema bound to a resource type
func (r *Registry) BaseSchema(resourceType string) (*SchemaDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.baseSchemaLocked(resourceType)
}

func (r *Registry) baseSchemaLocked(resourceType string) (*SchemaDefinition, error) {
	b, ok := r.bindings[resourceType]
	if !ok || b.base == "" {
		return nil, ResourceTypeNotFoundError{ResourceType: resourceType}
	}
	return r.schemas[b.base], nil
}

// Extensions returns the extension schemas bound to a resource type in
// registration order
func (r *Registry) Extensions(resourceType string) []*SchemaDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[resourceType]
	if !ok {
		return nil
	}
	exts := make([]*SchemaDefinition, 0, len(b.extensions))
	for _, id := range b.extensions {
		exts = append(exts, r.schemas[id])
	}
	return exts
}

// ResourceTypes returns the names of all resource types with a bound base
// schema, sorted
func (r *Registry) ResourceTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.bindings))
	for name, b := range r.bindings {
		if b.base != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
