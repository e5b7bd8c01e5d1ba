package plugin

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/modlog"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
)

// Named entry types pair a hook with the plugin name for logging.

type policiesResolvedEntry struct {
	name string
	hook PoliciesResolved
}
type roleCreatedEntry struct {
	name string
	hook RoleCreated
}
type roleUpdatedEntry struct {
	name string
	hook RoleUpdated
}
type roleDeletedEntry struct {
	name string
	hook RoleDeleted
}
type roleAssignedEntry struct {
	name string
	hook RoleAssigned
}
type roleUnassignedEntry struct {
	name string
	hook RoleUnassigned
}
type modLogWrittenEntry struct {
	name string
	hook ModLogWritten
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
//
// Register is not safe to call concurrently with Emit*; register every
// plugin before the engine starts serving.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	policiesResolved []policiesResolvedEntry
	roleCreated      []roleCreatedEntry
	roleUpdated      []roleUpdatedEntry
	roleDeleted      []roleDeletedEntry
	roleAssigned     []roleAssignedEntry
	roleUnassigned   []roleUnassignedEntry
	modLogWritten    []modLogWrittenEntry
	shutdown         []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(PoliciesResolved); ok {
		r.policiesResolved = append(r.policiesResolved, policiesResolvedEntry{name, h})
	}
	if h, ok := p.(RoleCreated); ok {
		r.roleCreated = append(r.roleCreated, roleCreatedEntry{name, h})
	}
	if h, ok := p.(RoleUpdated); ok {
		r.roleUpdated = append(r.roleUpdated, roleUpdatedEntry{name, h})
	}
	if h, ok := p.(RoleDeleted); ok {
		r.roleDeleted = append(r.roleDeleted, roleDeletedEntry{name, h})
	}
	if h, ok := p.(RoleAssigned); ok {
		r.roleAssigned = append(r.roleAssigned, roleAssignedEntry{name, h})
	}
	if h, ok := p.(RoleUnassigned); ok {
		r.roleUnassigned = append(r.roleUnassigned, roleUnassignedEntry{name, h})
	}
	if h, ok := p.(ModLogWritten); ok {
		r.modLogWritten = append(r.modLogWritten, modLogWrittenEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// EmitPoliciesResolved notifies all plugins that implement PoliciesResolved.
func (r *Registry) EmitPoliciesResolved(ctx context.Context, instanceID string, set policy.Set, took time.Duration, resolveErr error) {
	for _, e := range r.policiesResolved {
		if err := e.hook.OnPoliciesResolved(ctx, instanceID, set, took, resolveErr); err != nil {
			r.logHookError("OnPoliciesResolved", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Role event emitters
// ──────────────────────────────────────────────────

// EmitRoleCreated notifies all plugins that implement RoleCreated.
func (r *Registry) EmitRoleCreated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleCreated {
		if err := e.hook.OnRoleCreated(ctx, rl); err != nil {
			r.logHookError("OnRoleCreated", e.name, err)
		}
	}
}

// EmitRoleUpdated notifies all plugins that implement RoleUpdated.
func (r *Registry) EmitRoleUpdated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleUpdated {
		if err := e.hook.OnRoleUpdated(ctx, rl); err != nil {
			r.logHookError("OnRoleUpdated", e.name, err)
		}
	}
}

// EmitRoleDeleted notifies all plugins that implement RoleDeleted.
func (r *Registry) EmitRoleDeleted(ctx context.Context, roleID id.RoleID) {
	for _, e := range r.roleDeleted {
		if err := e.hook.OnRoleDeleted(ctx, roleID); err != nil {
			r.logHookError("OnRoleDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Assignment event emitters
// ──────────────────────────────────────────────────

// EmitRoleAssigned notifies all plugins that implement RoleAssigned.
func (r *Registry) EmitRoleAssigned(ctx context.Context, a *assignment.Assignment) {
	for _, e := range r.roleAssigned {
		if err := e.hook.OnRoleAssigned(ctx, a); err != nil {
			r.logHookError("OnRoleAssigned", e.name, err)
		}
	}
}

// EmitRoleUnassigned notifies all plugins that implement RoleUnassigned.
func (r *Registry) EmitRoleUnassigned(ctx context.Context, a *assignment.Assignment) {
	for _, e := range r.roleUnassigned {
		if err := e.hook.OnRoleUnassigned(ctx, a); err != nil {
			r.logHookError("OnRoleUnassigned", e.name, err)
		}
	}
}

// EmitModLogWritten notifies all plugins that implement ModLogWritten.
func (r *Registry) EmitModLogWritten(ctx context.Context, entry *modlog.Entry) {
	for _, e := range r.modLogWritten {
		if err := e.hook.OnModLogWritten(ctx, entry); err != nil {
			r.logHookError("OnModLogWritten", e.name, err)
		}
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Hook errors are never propagated to the caller.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
