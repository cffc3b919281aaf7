package storage

import "fmt"

// InvalidKeyError indicates a key component is empty or malformed
type InvalidKeyError struct {
	Key    Key
	Reason string
}

func (e InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key %s: %s", e.Key.Path(), e.Reason)
}

// CorruptRecordError indicates a stored record could not be decoded
type CorruptRecordError struct {
	Path string
}

func (e CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record at %s", e.Path)
}

func validateKey(key Key) error {
	if key.Tenant == "" {
		return InvalidKeyError{Key: key, Reason: "tenant cannot be empty"}
	}
	if key.ResourceType == "" {
		return InvalidKeyError{Key: key, Reason: "resource type cannot be empty"}
	}
	if key.ID == "" {
		return InvalidKeyError{Key: key, Reason: "id cannot be empty"}
	}
	return nil
}

func validatePrefix(prefix Prefix) error {
	if prefix.Tenant == "" {
		return InvalidKeyError{Key: Key{Tenant: prefix.Tenant, ResourceType: prefix.ResourceType}, Reason: "tenant cannot be empty"}
	}
	if prefix.ResourceType == "" {
		return InvalidKeyError{Key: Key{Tenant: prefix.Tenant, ResourceType: prefix.ResourceType}, Reason: "resource type cannot be empty"}
	}
	return nil
}
