package storage

import (
	"fmt"

	"github.com/identra/engine/internal/config"
)

// Open constructs the backend selected by the configuration
func Open(cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return NewMemory(), nil
	case "pebble":
		return OpenPebble(cfg.Storage.DataDir)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
