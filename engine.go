package herald

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/cache"
	"github.com/xraph/herald/instance"
	"github.com/xraph/herald/plugin"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
	"github.com/xraph/herald/store"
)

// Cache names reported to the metrics recorder.
const (
	RoleCacheName       = "roles"
	AssignmentCacheName = "assignments"
)

const allRolesKey = "all"

// Engine resolves instance policies from roles and manages roles and their
// assignments. It is safe for concurrent use.
type Engine struct {
	store     store.Store
	instances instance.Provider
	defaults  policy.DefaultsProvider
	plugins   *plugin.Registry
	pending   []plugin.Plugin
	logger    *slog.Logger
	config    Config
	now       func() time.Time
	recorder  cache.Recorder

	roles       *cache.Memory[string, []*role.Role]
	assignments *cache.Memory[string, []*assignment.Assignment]

	stopOnce sync.Once
}

// NewEngine creates a new herald engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, ErrNoStore
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.defaults == nil {
		e.defaults = policy.Static(policy.FromMap(e.config.DefaultPolicies))
	}

	e.plugins = plugin.NewRegistry(e.logger)
	for _, p := range e.pending {
		e.plugins.Register(p)
	}
	e.pending = nil

	e.roles = cache.NewMemory[string, []*role.Role](
		cache.WithTTL(e.config.RoleCacheTTL),
		cache.WithJanitor(e.config.CacheJanitorInterval),
		cache.WithRecorder(RoleCacheName, e.recorder),
		cache.WithClock(e.now),
	)
	e.assignments = cache.NewMemory[string, []*assignment.Assignment](
		cache.WithTTL(e.config.AssignmentCacheTTL),
		cache.WithMaxSize(e.config.AssignmentCacheMaxSize),
		cache.WithJanitor(e.config.CacheJanitorInterval),
		cache.WithRecorder(AssignmentCacheName, e.recorder),
		cache.WithClock(e.now),
	)
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Instances returns the instance provider (may be nil).
func (e *Engine) Instances() instance.Provider { return e.instances }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.now() }

// Start warms the role cache.
func (e *Engine) Start(ctx context.Context) error {
	if _, err := e.allRoles(ctx); err != nil {
		return fmt.Errorf("herald: start: %w", err)
	}
	return nil
}

// Stop notifies plugins and releases the caches. Calling it again is a no-op.
func (e *Engine) Stop(ctx context.Context) error {
	e.stopOnce.Do(func() {
		e.plugins.EmitShutdown(ctx)
		e.roles.Close()
		e.assignments.Close()
	})
	return nil
}

// Dispose is Stop with a background context.
func (e *Engine) Dispose() error { return e.Stop(context.Background()) }

// InvalidateRoles drops the cached role list.
func (e *Engine) InvalidateRoles() { e.roles.Clear() }

// InvalidateInstance drops the cached assignments of one instance.
func (e *Engine) InvalidateInstance(instanceID string) { e.assignments.Delete(instanceID) }

// InvalidateAssignments drops every cached assignment list.
func (e *Engine) InvalidateAssignments() { e.assignments.Clear() }

// allRoles returns the shared role snapshot. Callers must not mutate it.
func (e *Engine) allRoles(ctx context.Context) ([]*role.Role, error) {
	return e.roles.Fetch(ctx, allRolesKey, func(ctx context.Context) ([]*role.Role, error) {
		return e.store.ListRoles(ctx, nil)
	})
}

// cachedAssignments returns every row for the instance, stale ones
// included. Callers must not mutate it.
func (e *Engine) cachedAssignments(ctx context.Context, instanceID string) ([]*assignment.Assignment, error) {
	return e.assignments.Fetch(ctx, instanceID, func(ctx context.Context) ([]*assignment.Assignment, error) {
		return e.store.ListAssignments(ctx, &assignment.ListFilter{InstanceID: instanceID})
	})
}
