// Package provider implements the multi-tenant resource provider, the
// operation surface transport adapters call into. It owns meta stamping,
// quota enforcement, uniqueness checks, and conditional-write
// serialization on top of a pluggable storage backend.
package provider

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/identra/engine/internal/etag"
	"github.com/identra/engine/internal/logger"
	"github.com/identra/engine/internal/metrics"
	"github.com/identra/engine/internal/patch"
	"github.com/identra/engine/internal/resource"
	"github.com/identra/engine/internal/schema"
	"github.com/identra/engine/internal/storage"
)

// VersionedResource pairs a resource with the version it carried when
// read or written
type VersionedResource struct {
	Resource *resource.Resource
	Version  etag.Raw
}

// Page is one page of a tenant-scoped listing
type Page struct {
	Resources    []VersionedResource
	TotalResults int
	StartIndex   int
	ItemsPerPage int
}

// Filter is a simple attribute-equality predicate pushed down to storage
type Filter struct {
	Attribute string
	Value     string
}

// Options configures optional provider collaborators
type Options struct {
	// URLs generates meta.location and $ref values; nil leaves them unset
	URLs resource.URLGenerator
	// Metrics receives operation counters; nil disables instrumentation
	Metrics *metrics.ProviderMetrics
	// DefaultMaxUsers caps User resources per tenant when the tenant
	// context carries no quota of its own; zero means unlimited
	DefaultMaxUsers int
	// DefaultMaxGroups is the Group counterpart of DefaultMaxUsers
	DefaultMaxGroups int
}

// Provider orchestrates tenant-scoped CRUD and PATCH over the schema
// registry, version engine, patch engine, and storage backend.
type Provider struct {
	registry *schema.Registry
	store    storage.Backend
	opts     Options
	locks    lockTable
	log      zerolog.Logger
}

// New creates a provider over the given registry and storage backend
func New(registry *schema.Registry, store storage.Backend, opts Options) *Provider {
	return &Provider{
		registry: registry,
		store:    store,
		opts:     opts,
		log:      logger.WithComponent("provider"),
	}
}

// Create validates a caller-supplied document, assigns an id if the
// caller omitted one, stamps meta, and persists. Fails with a conflict
// if the id or a unique attribute is already taken, and with a tenant
// limit error if the create would exceed the tenant's quota.
func (p *Provider) Create(ctx context.Context, rc RequestContext, resourceType string, doc map[string]any) (*VersionedResource, error) {
	start := time.Now()
	tenant := rc.EffectiveTenant()

	if !rc.permissions().CanCreate {
		return nil, PermissionDeniedError{Tenant: tenant, Operation: "create"}
	}

	res, err := resource.FromJSON(resourceType, doc, p.registry)
	if err != nil {
		p.recordValidationFailure(resourceType)
		p.record(tenant, resourceType, "create", "invalid", start)
		return nil, err
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}

	key := storage.Key{Tenant: tenant, ResourceType: resourceType, ID: res.ID}
	prefix := storage.Prefix{Tenant: tenant, ResourceType: resourceType}

	var out *VersionedResource
	err = p.locks.withScope(prefix.Path(), key.Path(), func() error {
		if err := p.checkQuota(ctx, rc, prefix); err != nil {
			return err
		}

		exists, err := p.store.Exists(ctx, key)
		if err != nil {
			return BackendError{Op: "create", Cause: err}
		}
		if exists {
			return ConflictError{ResourceType: resourceType, ID: res.ID}
		}

		if err := p.checkUnique(ctx, prefix, res, ""); err != nil {
			return err
		}

		now := time.Now().UTC()
		res.Meta = resource.Meta{
			ResourceType: resourceType,
			Created:      now,
			LastModified: now,
		}
		version, err := etag.Compute(res.Document())
		if err != nil {
			return BackendError{Op: "create", Cause: err}
		}
		res.Meta.Version = version

		if err := p.put(ctx, key, res); err != nil {
			return err
		}
		out = &VersionedResource{Resource: res, Version: version}
		return nil
	})
	if err != nil {
		p.recordFailure(tenant, resourceType, "create", err, start)
		return nil, err
	}

	p.opts.Metrics.RecordResourceCreated(tenant, resourceType)
	p.record(tenant, resourceType, "create", "ok", start)
	p.log.Debug().
		Str("tenant", tenant).
		Str("resource_type", resourceType).
		Str("id", res.ID).
		Msg("Created resource")
	return out, nil
}

// Get performs a tenant-scoped lookup. Absence is not an error: the
// result is nil when the id does not exist in the effective tenant,
// including when it exists only under a different tenant.
func (p *Provider) Get(ctx context.Context, rc RequestContext, resourceType, id string) (*VersionedResource, error) {
	tenant := rc.EffectiveTenant()

	if !rc.permissions().CanRead {
		return nil, PermissionDeniedError{Tenant: tenant, Operation: "read"}
	}
	if _, err := p.registry.BaseSchema(resourceType); err != nil {
		return nil, err
	}

	key := storage.Key{Tenant: tenant, ResourceType: resourceType, ID: id}
	record, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, BackendError{Op: "get", Cause: err}
	}
	if record == nil {
		return nil, nil
	}
	return p.decode(key, *record)
}

// Update replaces a resource's content wholesale. When expectedVersion
// is non-nil the write is conditional: a stale version fails with a
// version conflict and leaves storage untouched.
func (p *Provider) Update(ctx context.Context, rc RequestContext, resourceType, id string, doc map[string]any, expectedVersion *etag.Raw) (*VersionedResource, error) {
	start := time.Now()
	tenant := rc.EffectiveTenant()

	if !rc.permissions().CanUpdate {
		return nil, PermissionDeniedError{Tenant: tenant, Operation: "update"}
	}

	key := storage.Key{Tenant: tenant, ResourceType: resourceType, ID: id}
	prefix := storage.Prefix{Tenant: tenant, ResourceType: resourceType}

	var out *VersionedResource
	err := p.locks.withKey(key.Path(), func() error {
		current, currentDoc, err := p.load(ctx, key)
		if err != nil {
			return err
		}
		if err := p.checkVersion(key, current, expectedVersion); err != nil {
			return err
		}

		res, err := resource.FromDocument(resourceType, doc, p.registry, schema.OpReplace)
		if err != nil {
			p.recordValidationFailure(resourceType)
			return err
		}
		if err := p.registry.CheckImmutable(resourceType, doc, currentDoc); err != nil {
			return err
		}
		if res.ID != "" && res.ID != id {
			return schema.ValidationError{
				Kind:      schema.KindMutabilityViolation,
				Attribute: schema.AttrID,
				Detail:    "id cannot be changed",
			}
		}
		res.ID = id

		if err := p.checkUnique(ctx, prefix, res, id); err != nil {
			return err
		}

		res.Meta = resource.Meta{
			ResourceType: resourceType,
			Created:      current.Resource.Meta.Created,
			LastModified: time.Now().UTC(),
		}
		version, err := etag.Compute(res.Document())
		if err != nil {
			return BackendError{Op: "update", Cause: err}
		}
		res.Meta.Version = version

		if err := p.put(ctx, key, res); err != nil {
			return err
		}
		out = &VersionedResource{Resource: res, Version: version}
		return nil
	})
	if err != nil {
		p.recordFailure(tenant, resourceType, "update", err, start)
		return nil, err
	}

	p.record(tenant, resourceType, "update", "ok", start)
	p.log.Debug().
		Str("tenant", tenant).
		Str("resource_type", resourceType).
		Str("id", id).
		Msg("Replaced resource")
	return out, nil
}

// Patch applies a batch of patch operations atomically under the same
// conditional-write guarantee as Update. A single invalid operation
// aborts the whole batch with no observable change.
func (p *Provider) Patch(ctx context.Context, rc RequestContext, resourceType, id string, ops []patch.Operation, expectedVersion *etag.Raw) (*VersionedResource, error) {
	start := time.Now()
	tenant := rc.EffectiveTenant()

	if !rc.permissions().CanUpdate {
		return nil, PermissionDeniedError{Tenant: tenant, Operation: "patch"}
	}

	key := storage.Key{Tenant: tenant, ResourceType: resourceType, ID: id}
	prefix := storage.Prefix{Tenant: tenant, ResourceType: resourceType}

	var out *VersionedResource
	err := p.locks.withKey(key.Path(), func() error {
		current, _, err := p.load(ctx, key)
		if err != nil {
			return err
		}
		if err := p.checkVersion(key, current, expectedVersion); err != nil {
			return err
		}

		res, err := patch.Apply(current.Resource, ops, p.registry)
		if err != nil {
			p.recordPatchOps(ops, "rejected")
			return err
		}
		res.ID = id

		if err := p.checkUnique(ctx, prefix, res, id); err != nil {
			return err
		}

		res.Meta = resource.Meta{
			ResourceType: resourceType,
			Created:      current.Resource.Meta.Created,
			LastModified: time.Now().UTC(),
		}
		version, err := etag.Compute(res.Document())
		if err != nil {
			return BackendError{Op: "patch", Cause: err}
		}
		res.Meta.Version = version

		if err := p.put(ctx, key, res); err != nil {
			return err
		}
		out = &VersionedResource{Resource: res, Version: version}
		return nil
	})
	if err != nil {
		p.recordFailure(tenant, resourceType, "patch", err, start)
		return nil, err
	}

	p.recordPatchOps(ops, "ok")
	p.record(tenant, resourceType, "patch", "ok", start)
	p.log.Debug().
		Str("tenant", tenant).
		Str("resource_type", resourceType).
		Str("id", id).
		Int("operations", len(ops)).
		Msg("Patched resource")
	return out, nil
}

// Delete removes a resource. Deleting an absent id reports NotFound so
// callers can distinguish an idempotent no-op from genuine absence.
func (p *Provider) Delete(ctx context.Context, rc RequestContext, resourceType, id string, expectedVersion *etag.Raw) error {
	start := time.Now()
	tenant := rc.EffectiveTenant()

	if !rc.permissions().CanDelete {
		return PermissionDeniedError{Tenant: tenant, Operation: "delete"}
	}

	key := storage.Key{Tenant: tenant, ResourceType: resourceType, ID: id}

	err := p.locks.withKey(key.Path(), func() error {
		current, _, err := p.load(ctx, key)
		if err != nil {
			return err
		}
		if err := p.checkVersion(key, current, expectedVersion); err != nil {
			return err
		}

		removed, err := p.store.Delete(ctx, key)
		if err != nil {
			return BackendError{Op: "delete", Cause: err}
		}
		if !removed {
			return NotFoundError{ResourceType: resourceType, ID: id}
		}
		return nil
	})
	if err != nil {
		p.recordFailure(tenant, resourceType, "delete", err, start)
		return err
	}

	p.opts.Metrics.RecordResourceDeleted(tenant, resourceType)
	p.record(tenant, resourceType, "delete", "ok", start)
	p.log.Debug().
		Str("tenant", tenant).
		Str("resource_type", resourceType).
		Str("id", id).
		Msg("Deleted resource")
	return nil
}

// List returns a tenant-scoped page of resources. Equality filtering is
// pushed down to the storage backend.
func (p *Provider) List(ctx context.Context, rc RequestContext, resourceType string, startIndex, count int, filter *Filter) (*Page, error) {
	tenant := rc.EffectiveTenant()

	if !rc.permissions().CanList {
		return nil, PermissionDeniedError{Tenant: tenant, Operation: "list"}
	}
	if _, err := p.registry.BaseSchema(resourceType); err != nil {
		return nil, err
	}
	if startIndex < 1 {
		startIndex = 1
	}

	prefix := storage.Prefix{Tenant: tenant, ResourceType: resourceType}

	var entries []storage.Entry
	var total int
	if filter != nil {
		matched, err := p.store.FindByAttribute(ctx, prefix, filter.Attribute, filter.Value)
		if err != nil {
			return nil, BackendError{Op: "list", Cause: err}
		}
		total = len(matched)
		entries = paginate(matched, startIndex, count)
	} else {
		var err error
		total, err = p.store.Count(ctx, prefix)
		if err != nil {
			return nil, BackendError{Op: "list", Cause: err}
		}
		entries, err = p.store.List(ctx, prefix, startIndex, count)
		if err != nil {
			return nil, BackendError{Op: "list", Cause: err}
		}
	}

	page := &Page{
		Resources:    make([]VersionedResource, 0, len(entries)),
		TotalResults: total,
		StartIndex:   startIndex,
	}
	for _, entry := range entries {
		vr, err := p.decode(entry.Key, entry.Record)
		if err != nil {
			return nil, err
		}
		page.Resources = append(page.Resources, *vr)
	}
	page.ItemsPerPage = len(page.Resources)
	return page, nil
}

// Stats reports backend-wide tenant and resource counts
func (p *Provider) Stats(ctx context.Context) (storage.Stats, error) {
	stats, err := p.store.Stats(ctx)
	if err != nil {
		return storage.Stats{}, BackendError{Op: "stats", Cause: err}
	}
	return stats, nil
}

// checkQuota enforces the tenant's resource cap before any write
func (p *Provider) checkQuota(ctx context.Context, rc RequestContext, prefix storage.Prefix) error {
	limit := p.quotaFor(rc, prefix.ResourceType)
	if limit <= 0 {
		return nil
	}
	current, err := p.store.Count(ctx, prefix)
	if err != nil {
		return BackendError{Op: "create", Cause: err}
	}
	if current >= limit {
		p.opts.Metrics.RecordConflict(prefix.Tenant, prefix.ResourceType, "quota")
		return TenantLimitExceededError{
			Tenant:       prefix.Tenant,
			ResourceType: prefix.ResourceType,
			Limit:        limit,
		}
	}
	return nil
}

// quotaFor resolves the effective quota: the tenant context's own cap
// when present, otherwise the provider-wide default. Zero is unlimited.
func (p *Provider) quotaFor(rc RequestContext, resourceType string) int {
	switch resourceType {
	case resource.TypeUser:
		if rc.Tenant != nil && rc.Tenant.Permissions.MaxUsers != nil {
			return *rc.Tenant.Permissions.MaxUsers
		}
		return p.opts.DefaultMaxUsers
	case resource.TypeGroup:
		if rc.Tenant != nil && rc.Tenant.Permissions.MaxGroups != nil {
			return *rc.Tenant.Permissions.MaxGroups
		}
		return p.opts.DefaultMaxGroups
	default:
		return 0
	}
}

// checkUnique rejects writes whose server-unique attributes collide with
// a different resource in the same tenant scope
func (p *Provider) checkUnique(ctx context.Context, prefix storage.Prefix, res *resource.Resource, selfID string) error {
	doc := res.Document()
	for _, attr := range p.registry.UniqueAttributes(res.ResourceType) {
		value, ok := doc[attr.Name].(string)
		if !ok || value == "" {
			continue
		}
		matches, err := p.store.FindByAttribute(ctx, prefix, attr.Name, value)
		if err != nil {
			return BackendError{Op: "uniqueness check", Cause: err}
		}
		for _, match := range matches {
			if match.Key.ID == selfID {
				continue
			}
			p.opts.Metrics.RecordConflict(prefix.Tenant, prefix.ResourceType, "uniqueness")
			return ConflictError{
				ResourceType: res.ResourceType,
				ID:           res.ID,
				Detail:       attr.Name + " is already in use",
			}
		}
	}
	return nil
}

// checkVersion compares a conditional write's expectation against the
// stored version
func (p *Provider) checkVersion(key storage.Key, current *VersionedResource, expected *etag.Raw) error {
	if expected == nil {
		return nil
	}
	if !etag.Equal(*expected, current.Version) {
		p.opts.Metrics.RecordConflict(key.Tenant, key.ResourceType, "version")
		return VersionConflictError{Expected: *expected, Current: current.Version}
	}
	return nil
}

// load reads a key and fails with NotFound when absent. It also returns
// the stored content document for immutability comparison.
func (p *Provider) load(ctx context.Context, key storage.Key) (*VersionedResource, map[string]any, error) {
	record, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, nil, BackendError{Op: "get", Cause: err}
	}
	if record == nil {
		return nil, nil, NotFoundError{ResourceType: key.ResourceType, ID: key.ID}
	}

	var doc map[string]any
	if err := json.Unmarshal(record.Document, &doc); err != nil {
		return nil, nil, BackendError{Op: "get", Cause: err}
	}
	vr, err := p.decode(key, *record)
	if err != nil {
		return nil, nil, err
	}
	return vr, doc, nil
}

// decode rehydrates a stored record into a versioned resource
func (p *Provider) decode(key storage.Key, record storage.Record) (*VersionedResource, error) {
	var doc map[string]any
	if err := json.Unmarshal(record.Document, &doc); err != nil {
		return nil, BackendError{Op: "decode", Cause: err}
	}
	res, err := resource.FromDocument(key.ResourceType, doc, p.registry, schema.OpPatch)
	if err != nil {
		return nil, BackendError{Op: "decode", Cause: err}
	}

	version := etag.RawFromString(record.Version)
	res.Meta = resource.Meta{
		ResourceType: key.ResourceType,
		Created:      record.Created,
		LastModified: record.LastModified,
		Version:      version,
	}
	if p.opts.URLs != nil {
		res.Meta.Location = p.opts.URLs.ResourceURL(key.ResourceType, key.ID)
	}
	return &VersionedResource{Resource: res, Version: version}, nil
}

// put serializes the resource's content document and writes it
func (p *Provider) put(ctx context.Context, key storage.Key, res *resource.Resource) error {
	data, err := json.Marshal(res.Document())
	if err != nil {
		return BackendError{Op: "put", Cause: err}
	}
	record := storage.Record{
		Document:     data,
		Version:      res.Meta.Version.String(),
		Created:      res.Meta.Created,
		LastModified: res.Meta.LastModified,
	}
	if _, err := p.store.Put(ctx, key, record); err != nil {
		return BackendError{Op: "put", Cause: err}
	}
	return nil
}

func (p *Provider) record(tenant, resourceType, operation, status string, start time.Time) {
	p.opts.Metrics.RecordOperation(tenant, resourceType, operation, status, time.Since(start))
}

func (p *Provider) recordFailure(tenant, resourceType, operation string, err error, start time.Time) {
	status := string(Categorize(err))
	p.opts.Metrics.RecordOperation(tenant, resourceType, operation, status, time.Since(start))
}

func (p *Provider) recordValidationFailure(resourceType string) {
	if base, err := p.registry.BaseSchema(resourceType); err == nil {
		p.opts.Metrics.RecordValidationFailure(base.ID)
	}
}

func (p *Provider) recordPatchOps(ops []patch.Operation, status string) {
	for _, op := range ops {
		p.opts.Metrics.RecordPatchOp(string(op.Op), status)
	}
}

// paginate applies 1-based pagination to a filtered entry list
func paginate(entries []storage.Entry, startIndex, count int) []storage.Entry {
	offset := startIndex - 1
	if offset >= len(entries) {
		return nil
	}
	page := entries[offset:]
	if count > 0 && count < len(page) {
		page = page[:count]
	}
	return page
}
