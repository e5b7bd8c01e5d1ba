package herald

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds configuration for the herald engine.
type Config struct {
	// RoleCacheTTL bounds how long the role list is served from memory.
	RoleCacheTTL time.Duration `json:"role_cache_ttl,omitempty" envconfig:"ROLE_CACHE_TTL" default:"1h"`

	// AssignmentCacheTTL bounds how long an instance's assignments are
	// served from memory.
	AssignmentCacheTTL time.Duration `json:"assignment_cache_ttl,omitempty" envconfig:"ASSIGNMENT_CACHE_TTL" default:"1h"`

	// AssignmentCacheMaxSize caps the number of cached instances.
	// Zero means unbounded.
	AssignmentCacheMaxSize int `json:"assignment_cache_max_size,omitempty" envconfig:"ASSIGNMENT_CACHE_MAX_SIZE"`

	// CacheJanitorInterval is how often expired cache entries are swept.
	// Zero disables the sweep.
	CacheJanitorInterval time.Duration `json:"cache_janitor_interval,omitempty" envconfig:"CACHE_JANITOR_INTERVAL" default:"1m"`

	// DefaultPolicies are the system-wide instance policy defaults overlaid
	// on the baseline, e.g. HERALD_DEFAULT_POLICIES=noteRateLimit:100.
	// Ignored when a DefaultsProvider is set.
	DefaultPolicies map[string]int64 `json:"default_policies,omitempty" envconfig:"DEFAULT_POLICIES"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RoleCacheTTL:         time.Hour,
		AssignmentCacheTTL:   time.Hour,
		CacheJanitorInterval: time.Minute,
	}
}

// LoadConfig reads a Config from environment variables named
// <prefix>_<FIELD>, falling back to DefaultConfig.
func LoadConfig(prefix string) (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("herald: load config: %w", err)
	}
	return cfg, nil
}
