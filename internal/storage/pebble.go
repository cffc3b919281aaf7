package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/identra/engine/internal/logger"
)

// Pebble is a persistent backend on a single Pebble database. Keys are
// the tenant/resourceType/id paths, values are JSON-encoded records.
type Pebble struct {
	db  *pebble.DB
	log zerolog.Logger
}

// OpenPebble opens (or creates) a Pebble-backed store at dir
func OpenPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dir, err)
	}
	p := &Pebble{
		db:  db,
		log: logger.WithComponent("storage-pebble"),
	}
	p.log.Info().Str("dir", dir).Msg("Pebble store opened")
	return p, nil
}

// Put implements Backend
func (p *Pebble) Put(ctx context.Context, key Key, record Record) (Record, error) {
	if err := validateKey(key); err != nil {
		return Record{}, err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode record: %w", err)
	}
	if err := p.db.Set([]byte(key.Path()), data, pebble.Sync); err != nil {
		return Record{}, fmt.Errorf("failed to write record: %w", err)
	}
	return record, nil
}

// Get implements Backend
func (p *Pebble) Get(ctx context.Context, key Key) (*Record, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, closer, err := p.db.Get([]byte(key.Path()))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	defer closer.Close()

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, CorruptRecordError{Path: key.Path()}
	}
	return &record, nil
}

// Delete implements Backend
func (p *Pebble) Delete(ctx context.Context, key Key) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	path := []byte(key.Path())

	_, closer, err := p.db.Get(path)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read record: %w", err)
	}
	closer.Close()

	if err := p.db.Delete(path, pebble.Sync); err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	return true, nil
}

// Exists implements Backend
func (p *Pebble) Exists(ctx context.Context, key Key) (bool, error) {
	record, err := p.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// List implements Backend; entries are ordered by key path
func (p *Pebble) List(ctx context.Context, prefix Prefix, startIndex, count int) ([]Entry, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	entries, err := p.scan(prefix.Path(), nil)
	if err != nil {
		return nil, err
	}
	return page(entries, startIndex, count), nil
}

// FindByAttribute implements Backend
func (p *Pebble) FindByAttribute(ctx context.Context, prefix Prefix, attribute, value string) ([]Entry, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	return p.scan(prefix.Path(), func(entry Entry) (bool, error) {
		return documentAttributeEquals(entry.Record.Document, attribute, value)
	})
}

// Count implements Backend
func (p *Pebble) Count(ctx context.Context, prefix Prefix) (int, error) {
	if err := validatePrefix(prefix); err != nil {
		return 0, err
	}
	entries, err := p.scan(prefix.Path(), nil)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// ListTenants implements Backend
func (p *Pebble) ListTenants(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	if err := p.iterate("", func(key Key, _ []byte) error {
		seen[key.Tenant] = true
		return nil
	}); err != nil {
		return nil, err
	}
	return sortedKeys(seen), nil
}

// ListResourceTypes implements Backend
func (p *Pebble) ListResourceTypes(ctx context.Context, tenant string) ([]string, error) {
	seen := make(map[string]bool)
	if err := p.iterate(tenant+"/", func(key Key, _ []byte) error {
		seen[key.ResourceType] = true
		return nil
	}); err != nil {
		return nil, err
	}
	return sortedKeys(seen), nil
}

// Stats implements Backend
func (p *Pebble) Stats(ctx context.Context) (Stats, error) {
	tenants := make(map[string]bool)
	total := 0
	if err := p.iterate("", func(key Key, _ []byte) error {
		tenants[key.Tenant] = true
		total++
		return nil
	}); err != nil {
		return Stats{}, err
	}
	return Stats{TenantCount: len(tenants), TotalResources: total}, nil
}

// Close implements Backend
func (p *Pebble) Close() error {
	if err := p.db.Close(); err != nil {
		p.log.Error().Err(err).Msg("Failed to close Pebble store")
		return err
	}
	p.log.Info().Msg("Pebble store closed")
	return nil
}

// scan collects entries under a key prefix, optionally filtered
func (p *Pebble) scan(prefix string, match func(Entry) (bool, error)) ([]Entry, error) {
	entries := make([]Entry, 0)
	err := p.iterate(prefix, func(key Key, value []byte) error {
		var record Record
		if err := json.Unmarshal(value, &record); err != nil {
			return CorruptRecordError{Path: key.Path()}
		}
		entry := Entry{Key: key, Record: record}
		if match != nil {
			ok, err := match(entry)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// iterate walks keys under a prefix in order
func (p *Pebble) iterate(prefix string, fn func(Key, []byte) error) error {
	opts := &pebble.IterOptions{}
	if prefix != "" {
		opts.LowerBound = []byte(prefix)
		opts.UpperBound = upperBound([]byte(prefix))
	}
	iter, err := p.db.NewIter(opts)
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		path := string(iter.Key())
		if prefix != "" && !strings.HasPrefix(path, prefix) {
			break
		}
		key, ok := ParseKey(path)
		if !ok {
			return CorruptRecordError{Path: path}
		}
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return iter.Error()
}

// upperBound returns the smallest key greater than every key with the
// given prefix
func upperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	for i := len(bound) - 1; i >= 0; i-- {
		if bound[i] < 0xff {
			bound[i]++
			return bound[:i+1]
		}
	}
	return nil
}
