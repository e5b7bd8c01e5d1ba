package extension

import "time"

// Config holds the herald extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.herald" or "herald" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// RoleCacheTTL overrides the engine's role cache lifetime.
	RoleCacheTTL time.Duration `json:"role_cache_ttl" mapstructure:"role_cache_ttl" yaml:"role_cache_ttl"`

	// AssignmentCacheTTL overrides the engine's assignment cache lifetime.
	AssignmentCacheTTL time.Duration `json:"assignment_cache_ttl" mapstructure:"assignment_cache_ttl" yaml:"assignment_cache_ttl"`

	// DefaultPolicies are the system-wide instance policy defaults.
	DefaultPolicies map[string]int64 `json:"default_policies" mapstructure:"default_policies" yaml:"default_policies"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{}
}
