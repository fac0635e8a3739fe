package store

import (
	"fmt"
	"os"
	"path/filepath"

	"threadpilot/config"
)

// NewBundle creates a store Bundle based on the storage configuration
func NewBundle(cfg *config.StorageConfig) (*Bundle, error) {
	if cfg == nil {
		return NewMemoryBundle(DefaultTTL), nil
	}

	ttl := cfg.TTLDuration()

	switch cfg.Backend {
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite storage needs a path")
		}
		if cfg.Path != ":memory:" {
			dir := filepath.Dir(cfg.Path)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
			}
		}
		return NewSQLiteBundle(cfg.Path, ttl)

	case "memory", "":
		return NewMemoryBundle(ttl), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (expected 'memory' or 'sqlite')", cfg.Backend)
	}
}
