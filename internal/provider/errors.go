package provider

import (
	"fmt"

	"github.com/identra/engine/internal/etag"
)

// Category is a transport-neutral error class adapters translate into
// their own status codes without inspecting concrete error types.
type Category string

const (
	CategoryBadRequest   Category = "bad_request"
	CategoryNotFound     Category = "not_found"
	CategoryConflict     Category = "conflict"
	CategoryPrecondition Category = "precondition_failed"
	CategoryForbidden    Category = "forbidden"
	CategoryServerError  Category = "server_error"
)

// ConflictError indicates a write collided with existing state, e.g. a
// duplicate id or a unique attribute already in use.
type ConflictError struct {
	ResourceType string
	ID           string
	Detail       string
}

func (e ConflictError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("conflict on %s %s: %s", e.ResourceType, e.ID, e.Detail)
	}
	return fmt.Sprintf("%s %s already exists", e.ResourceType, e.ID)
}

// NotFoundError indicates the addressed resource does not exist in the
// effective tenant's scope.
type NotFoundError struct {
	ResourceType string
	ID           string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ID)
}

// VersionConflictError indicates a conditional write presented a stale
// version. Current is the version actually stored.
type VersionConflictError struct {
	Expected etag.Raw
	Current  etag.Raw
}

func (e VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: expected %s, current %s", e.Expected, e.Current)
}

// TenantLimitExceededError indicates a create would exceed the tenant's
// configured quota for the resource type.
type TenantLimitExceededError struct {
	Tenant       string
	ResourceType string
	Limit        int
}

func (e TenantLimitExceededError) Error() string {
	return fmt.Sprintf("tenant %s exceeds limit of %d for %s", e.Tenant, e.Limit, e.ResourceType)
}

// TenantNotFoundError indicates the request named a tenant the provider
// does not know.
type TenantNotFoundError struct {
	Tenant string
}

func (e TenantNotFoundError) Error() string {
	return fmt.Sprintf("tenant %s not found", e.Tenant)
}

// PermissionDeniedError indicates the tenant's client lacks the
// permission for the attempted operation.
type PermissionDeniedError struct {
	Tenant    string
	Operation string
}

func (e PermissionDeniedError) Error() string {
	return fmt.Sprintf("tenant %s is not permitted to %s", e.Tenant, e.Operation)
}

// BackendError wraps a storage failure. The provider never retries;
// retry policy belongs to the caller.
type BackendError struct {
	Op    string
	Cause error
}

func (e BackendError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Cause)
}

func (e BackendError) Unwrap() error {
	return e.Cause
}

// Categorize maps an error to its transport-neutral category. Validation
// and patch errors from the schema layers classify as bad requests.
func Categorize(err error) Category {
	switch err.(type) {
	case NotFoundError, TenantNotFoundError:
		return CategoryNotFound
	case ConflictError:
		return CategoryConflict
	case VersionConflictError:
		return CategoryPrecondition
	case TenantLimitExceededError, PermissionDeniedError:
		return CategoryForbidden
	case BackendError:
		return CategoryServerError
	default:
		return CategoryBadRequest
	}
}
