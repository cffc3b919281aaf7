// Package storage defines the persistence capability consumed by the
// resource provider, plus the bundled backends. At this level creating
// and overwriting are the same Put operation; the create-vs-update
// distinction is enforced by the orchestrator.
package storage

import (
	"context"
	"strings"
	"time"
)

// Key identifies a stored resource by (tenant, resourceType, id)
type Key struct {
	Tenant       string
	ResourceType string
	ID           string
}

// Path encodes the key as tenant/resourceType/id
func (k Key) Path() string {
	return k.Tenant + "/" + k.ResourceType + "/" + k.ID
}

// Prefix identifies a tenant-scoped resource type key space
type Prefix struct {
	Tenant       string
	ResourceType string
}

// Path encodes the prefix as tenant/resourceType/
func (p Prefix) Path() string {
	return p.Tenant + "/" + p.ResourceType + "/"
}

// ParseKey decodes a key path back into its components
func ParseKey(path string) (Key, bool) {
	parts := strings.SplitN(path, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Key{}, false
	}
	return Key{Tenant: parts[0], ResourceType: parts[1], ID: parts[2]}, true
}

// Record is the stored value: the resource content document plus the
// meta fields the engine stamps around it.
type Record struct {
	// Document is the serialized resource content document
	Document []byte `json:"document"`
	// Version is the canonical content version
	Version string `json:"version"`
	// Created is when the resource was created
	Created time.Time `json:"created"`
	// LastModified is when the resource last changed
	LastModified time.Time `json:"last_modified"`
}

// Entry pairs a key with its stored record for listings
type Entry struct {
	Key    Key
	Record Record
}

// Stats summarizes a backend's contents
type Stats struct {
	// TenantCount is the number of distinct tenants with resources
	TenantCount int
	// TotalResources is the total number of stored resources
	TotalResources int
}

// Backend is the storage capability. Implementations must be safe for
// concurrent use; ordering across distinct keys is unconstrained.
type Backend interface {
	// Put stores a record under a key, creating or overwriting
	Put(ctx context.Context, key Key, record Record) (Record, error)

	// Get retrieves a record, returning nil when absent
	Get(ctx context.Context, key Key) (*Record, error)

	// Delete removes a key, reporting whether something was removed
	Delete(ctx context.Context, key Key) (bool, error)

	// Exists reports whether a key is present
	Exists(ctx context.Context, key Key) (bool, error)

	// List returns an ordered page of entries under a prefix.
	// startIndex is 1-based; count <= 0 means no limit.
	List(ctx context.Context, prefix Prefix, startIndex, count int) ([]Entry, error)

	// FindByAttribute returns the entries under a prefix whose document
	// has a top-level attribute equal to the given value
	FindByAttribute(ctx context.Context, prefix Prefix, attribute, value string) ([]Entry, error)

	// Count returns the number of entries under a prefix
	Count(ctx context.Context, prefix Prefix) (int, error)

	// ListTenants returns the distinct tenant ids with stored resources
	ListTenants(ctx context.Context) ([]string, error)

	// ListResourceTypes returns the distinct resource types stored for
	// a tenant
	ListResourceTypes(ctx context.Context, tenant string) ([]string, error)

	// Stats summarizes the backend contents
	Stats(ctx context.Context) (Stats, error)

	// Close releases backend resources
	Close() error
}
