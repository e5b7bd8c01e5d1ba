package herald

import (
	"log/slog"
	"time"

	"github.com/xraph/herald/cache"
	"github.com/xraph/herald/instance"
	"github.com/xraph/herald/plugin"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithInstanceProvider sets the source of instance counters used to match
// conditional roles and to label moderation log entries.
func WithInstanceProvider(p instance.Provider) Option {
	return func(e *Engine) { e.instances = p }
}

// WithDefaults sets the system-wide policy defaults. It takes precedence
// over Config.DefaultPolicies.
func WithDefaults(p policy.DefaultsProvider) Option {
	return func(e *Engine) { e.defaults = p }
}

// WithClock replaces time.Now for expiry checks and timestamps.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithMetrics reports cache hits and misses to r.
func WithMetrics(r cache.Recorder) Option { return func(e *Engine) { e.recorder = r } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) { e.pending = append(e.pending, x) }
}
