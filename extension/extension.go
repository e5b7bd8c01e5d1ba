// Package extension provides a Forge extension entry point for herald.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/herald"
	"github.com/xraph/herald/api"
	redisbus "github.com/xraph/herald/bus/redis"
	"github.com/xraph/herald/plugin"
	"github.com/xraph/herald/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "herald"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Instance roles and per-instance policy resolution"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts herald as a Forge extension.
type Extension struct {
	config     Config
	eng        *herald.Engine
	apiHandler *api.API
	logger     *slog.Logger
	heraldOpts []herald.Option
	plugins    []plugin.Plugin
	bus        *redisbus.Bus
	sub        *redisbus.Subscription
}

// New creates a herald Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying herald engine.
func (e *Extension) Engine() *herald.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*herald.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("herald: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	eng, err := e.newEngine(fapp)
	if err != nil {
		return err
	}
	e.eng = eng

	e.apiHandler = api.New(eng, fapp.Router())

	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("herald: register routes: %w", err)
		}
	}

	return nil
}

func (e *Extension) newEngine(fapp forge.App) (*herald.Engine, error) {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := make([]herald.Option, 0, len(e.heraldOpts)+len(e.plugins)+3)
	opts = append(opts, herald.WithLogger(logger), herald.WithConfig(e.engineConfig()))

	// Try to resolve store from DI container, fall back to option-provided store.
	if fapp != nil {
		if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
			opts = append(opts, herald.WithStore(s))
		}
	}

	opts = append(opts, e.heraldOpts...)
	for _, x := range e.plugins {
		opts = append(opts, herald.WithPlugin(x))
	}

	eng, err := herald.NewEngine(opts...)
	if err != nil {
		return nil, fmt.Errorf("herald: create engine: %w", err)
	}
	return eng, nil
}

// engineConfig layers the extension's overrides on the engine defaults.
func (e *Extension) engineConfig() herald.Config {
	cfg := herald.DefaultConfig()
	if e.config.RoleCacheTTL > 0 {
		cfg.RoleCacheTTL = e.config.RoleCacheTTL
	}
	if e.config.AssignmentCacheTTL > 0 {
		cfg.AssignmentCacheTTL = e.config.AssignmentCacheTTL
	}
	if len(e.config.DefaultPolicies) > 0 {
		cfg.DefaultPolicies = e.config.DefaultPolicies
	}
	return cfg
}

// Start runs migrations if enabled, starts the engine, and subscribes to
// the invalidation bus when one is configured.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("herald: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.eng.Store().Migrate(ctx); err != nil {
			return fmt.Errorf("herald: migration failed: %w", err)
		}
	}

	if err := e.eng.Start(ctx); err != nil {
		return err
	}

	if e.bus != nil {
		sub, err := e.bus.Subscribe(ctx, e.eng)
		if err != nil {
			return fmt.Errorf("herald: subscribe to bus: %w", err)
		}
		e.sub = sub
	}
	return nil
}

// Stop gracefully shuts down the herald engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	if e.sub != nil {
		if err := e.sub.Close(); err != nil {
			e.eng.Logger().Warn("close bus subscription", "error", err)
		}
		e.sub = nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("herald: extension not initialized")
	}
	return e.eng.Store().Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all herald API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
