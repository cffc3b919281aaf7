// Package test provides shared helpers for package tests: temp
// directories, a schema registry fixture, and well-formed resource
// documents.
package test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/identra/engine/internal/schema"
)

// TempDir creates a temporary directory for testing and returns its path.
// The directory is automatically cleaned up after the test.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "identra-test-*")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = os.RemoveAll(dir) // Ignore cleanup errors in tests
	})
	return dir
}

// TempFile creates a temporary file for testing and returns its path.
// The file is automatically cleaned up after the test.
func TempFile(t *testing.T, dir, pattern string) string {
	t.Helper()
	if dir == "" {
		dir = TempDir(t)
	}
	file, err := os.CreateTemp(dir, pattern)
	require.NoError(t, err)
	_ = file.Close() // Ignore close error
	t.Cleanup(func() {
		_ = os.Remove(file.Name()) // Ignore cleanup errors in tests
	})
	return file.Name()
}

// Registry builds a schema registry pre-loaded with the embedded core
// schemas, failing the test on error.
func Registry(t *testing.T) *schema.Registry {
	t.Helper()
	registry, err := schema.NewRegistry()
	require.NoError(t, err)
	return registry
}

// UserDocument returns a minimal valid User document
func UserDocument(userName string) map[string]any {
	return map[string]any{
		"schemas":  []any{schema.UserSchemaURN},
		"userName": userName,
	}
}

// FullUserDocument returns a User document exercising the typed core
// attributes and a multi-valued collection with a primary marker
func FullUserDocument(userName string) map[string]any {
	return map[string]any{
		"schemas":     []any{schema.UserSchemaURN},
		"userName":    userName,
		"displayName": "Test User",
		"active":      true,
		"name": map[string]any{
			"givenName":  "Test",
			"familyName": "User",
		},
		"emails": []any{
			map[string]any{"value": userName, "type": "work", "primary": true},
			map[string]any{"value": "home@example.com", "type": "home"},
		},
	}
}

// GroupDocument returns a minimal valid Group document
func GroupDocument(displayName string) map[string]any {
	return map[string]any{
		"schemas":     []any{schema.GroupSchemaURN},
		"displayName": displayName,
	}
}

// AssertFileExists checks if a file exists and fails the test if it doesn't.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.NoError(t, err, "file should exist: %s", path)
}

// AssertFileNotExists checks if a file doesn't exist and fails the test if it does.
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.Error(t, err, "file should not exist: %s", path)
	require.True(t, os.IsNotExist(err), "expected file not to exist: %s", path)
}
