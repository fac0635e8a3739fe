package config

import (
	"fmt"
	"time"
)

// DefaultStorageTTL is how long dedup tokens and thread conversations live
const DefaultStorageTTL = time.Hour

// StorageConfig defines the storage backend for dedup, thread context and run history
type StorageConfig struct {
	Backend string `hcl:"backend,optional"` // "memory" or "sqlite"
	Path    string `hcl:"path,optional"`    // SQLite file path (default: ".threadpilot/store.db")
	TTL     string `hcl:"ttl,optional"`     // Go duration (default: "1h")
}

// Defaults fills in default values for unset fields
func (s *StorageConfig) Defaults() {
	if s.Backend == "" {
		s.Backend = "memory"
	}
	if s.Path == "" {
		s.Path = ".threadpilot/store.db"
	}
	if s.TTL == "" {
		s.TTL = DefaultStorageTTL.String()
	}
}

func (s *StorageConfig) Validate() error {
	switch s.Backend {
	case "memory", "sqlite", "":
	default:
		return fmt.Errorf("unknown backend '%s' (expected 'memory' or 'sqlite')", s.Backend)
	}
	if s.TTL != "" {
		d, err := time.ParseDuration(s.TTL)
		if err != nil {
			return fmt.Errorf("invalid ttl '%s': %w", s.TTL, err)
		}
		if d <= 0 {
			return fmt.Errorf("ttl must be positive")
		}
	}
	return nil
}

// TTLDuration returns the parsed TTL, falling back to DefaultStorageTTL
func (s *StorageConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(s.TTL)
	if err != nil || d <= 0 {
		return DefaultStorageTTL
	}
	return d
}
