package extension

import (
	"log/slog"

	"github.com/xraph/herald"
	redisbus "github.com/xraph/herald/bus/redis"
	"github.com/xraph/herald/instance"
	"github.com/xraph/herald/metrics"
	"github.com/xraph/herald/plugin"
	"github.com/xraph/herald/store"
)

// ExtOption configures the herald Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.heraldOpts = append(e.heraldOpts, herald.WithStore(s))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...herald.Option) ExtOption {
	return func(e *Extension) {
		e.heraldOpts = append(e.heraldOpts, opts...)
	}
}

// WithInstanceProvider sets where instance counters are read from.
func WithInstanceProvider(p instance.Provider) ExtOption {
	return func(e *Extension) {
		e.heraldOpts = append(e.heraldOpts, herald.WithInstanceProvider(p))
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithMetrics reports cache and lifecycle metrics to c.
func WithMetrics(c *metrics.Collector) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, c)
		e.heraldOpts = append(e.heraldOpts, herald.WithMetrics(c))
	}
}

// WithBus publishes changes to b and, once started, applies the changes
// other nodes publish.
func WithBus(b *redisbus.Bus) ExtOption {
	return func(e *Extension) {
		e.bus = b
		e.plugins = append(e.plugins, b)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
