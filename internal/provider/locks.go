package provider

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 256

// lockTable serializes writers per storage key. Storage itself only
// offers plain put/get, so linearizable compare-and-commit is enforced
// here: every conditional write holds its key's stripe for the full
// read-compare-write sequence.
type lockTable struct {
	stripes [lockStripes]sync.Mutex
}

func (t *lockTable) mutex(path string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(path))
	return &t.stripes[h.Sum32()%lockStripes]
}

// withKey runs fn while holding the stripe for a single key
func (t *lockTable) withKey(path string, fn func() error) error {
	mu := t.mutex(path)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// withScope runs fn while holding both the tenant-scope stripe and the
// key stripe. The scope stripe is always taken first so creates cannot
// deadlock against each other; the two may hash to the same stripe.
func (t *lockTable) withScope(scopePath, keyPath string, fn func() error) error {
	scope := t.mutex(scopePath)
	key := t.mutex(keyPath)

	scope.Lock()
	defer scope.Unlock()
	if key != scope {
		key.Lock()
		defer key.Unlock()
	}
	return fn()
}
