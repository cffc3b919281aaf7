package patch

import "fmt"

// PathError indicates a path expression is malformed or resolves to no
// valid target
type PathError struct {
	Path   string
	Reason string
}

func (e PathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// MutabilityError indicates an operation targets an attribute whose
// mutability forbids it
type MutabilityError struct {
	Path   string
	Reason string
}

func (e MutabilityError) Error() string {
	return fmt.Sprintf("mutability violation at %q: %s", e.Path, e.Reason)
}

// TypeMismatchError indicates an operation value does not match the
// target attribute's declared type
type TypeMismatchError struct {
	Path   string
	Reason string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch at %q: %s", e.Path, e.Reason)
}
