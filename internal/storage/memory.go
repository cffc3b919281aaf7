package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// Memory is an in-memory backend. It is the default for tests and
// embedded use; contents do not survive the process.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory creates an empty in-memory backend
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]Record),
	}
}

// Put implements Backend
func (m *Memory) Put(ctx context.Context, key Key, record Record) (Record, error) {
	if err := validateKey(key); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key.Path()] = record
	return record, nil
}

// Get implements Backend
func (m *Memory) Get(ctx context.Context, key Key) (*Record, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[key.Path()]
	if !ok {
		return nil, nil
	}
	copied := record
	return &copied, nil
}

// Delete implements Backend
func (m *Memory) Delete(ctx context.Context, key Key) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	path := key.Path()
	if _, ok := m.records[path]; !ok {
		return false, nil
	}
	delete(m.records, path)
	return true, nil
}

// Exists implements Backend
func (m *Memory) Exists(ctx context.Context, key Key) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[key.Path()]
	return ok, nil
}

// List implements Backend; entries are ordered by key path
func (m *Memory) List(ctx context.Context, prefix Prefix, startIndex, count int) ([]Entry, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	entries, err := m.scan(prefix)
	if err != nil {
		return nil, err
	}
	return page(entries, startIndex, count), nil
}

// FindByAttribute implements Backend. String values compare
// case-insensitively, matching the protocol's default equality.
func (m *Memory) FindByAttribute(ctx context.Context, prefix Prefix, attribute, value string) ([]Entry, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	entries, err := m.scan(prefix)
	if err != nil {
		return nil, err
	}
	matched := make([]Entry, 0)
	for _, entry := range entries {
		ok, err := documentAttributeEquals(entry.Record.Document, attribute, value)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

// Count implements Backend
func (m *Memory) Count(ctx context.Context, prefix Prefix) (int, error) {
	if err := validatePrefix(prefix); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	p := prefix.Path()
	for path := range m.records {
		if strings.HasPrefix(path, p) {
			n++
		}
	}
	return n, nil
}

// ListTenants implements Backend
func (m *Memory) ListTenants(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	for path := range m.records {
		if key, ok := ParseKey(path); ok {
			seen[key.Tenant] = true
		}
	}
	return sortedKeys(seen), nil
}

// ListResourceTypes implements Backend
func (m *Memory) ListResourceTypes(ctx context.Context, tenant string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	for path := range m.records {
		if key, ok := ParseKey(path); ok && key.Tenant == tenant {
			seen[key.ResourceType] = true
		}
	}
	return sortedKeys(seen), nil
}

// Stats implements Backend
func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tenants := make(map[string]bool)
	for path := range m.records {
		if key, ok := ParseKey(path); ok {
			tenants[key.Tenant] = true
		}
	}
	return Stats{TenantCount: len(tenants), TotalResources: len(m.records)}, nil
}

// Close implements Backend
func (m *Memory) Close() error {
	return nil
}

func (m *Memory) scan(prefix Prefix) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := prefix.Path()
	entries := make([]Entry, 0)
	for path, record := range m.records {
		if !strings.HasPrefix(path, p) {
			continue
		}
		key, ok := ParseKey(path)
		if !ok {
			return nil, CorruptRecordError{Path: path}
		}
		entries = append(entries, Entry{Key: key, Record: record})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.Path() < entries[j].Key.Path()
	})
	return entries, nil
}

// page applies 1-based pagination to an ordered entry slice
func page(entries []Entry, startIndex, count int) []Entry {
	if startIndex < 1 {
		startIndex = 1
	}
	if startIndex > len(entries) {
		return []Entry{}
	}
	entries = entries[startIndex-1:]
	if count > 0 && count < len(entries) {
		entries = entries[:count]
	}
	return entries
}

// documentAttributeEquals decodes a stored document and compares a
// top-level attribute for equality
func documentAttributeEquals(document []byte, attribute, value string) (bool, error) {
	var doc map[string]any
	if err := json.Unmarshal(document, &doc); err != nil {
		return false, CorruptRecordError{Path: ""}
	}
	raw, ok := doc[attribute]
	if !ok {
		for key, v := range doc {
			if strings.EqualFold(key, attribute) {
				raw = v
				ok = true
				break
			}
		}
	}
	if !ok {
		return false, nil
	}
	if s, isString := raw.(string); isString {
		return strings.EqualFold(s, value), nil
	}
	return false, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
