// Package plugin defines the plugin system for Herald.
// Plugins are notified of lifecycle events (policies resolved, role created,
// role assigned, etc.) and can react with logging, metrics or fan-out.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/modlog"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Resolution hooks
// ──────────────────────────────────────────────────

// PoliciesResolved is called after an instance's effective policies are
// computed. err is non-nil when resolution failed.
type PoliciesResolved interface {
	OnPoliciesResolved(ctx context.Context, instanceID string, set policy.Set, took time.Duration, err error) error
}

// ──────────────────────────────────────────────────
// Role lifecycle hooks
// ──────────────────────────────────────────────────

// RoleCreated is called after a role is created.
type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *role.Role) error
}

// RoleUpdated is called after a role is updated.
type RoleUpdated interface {
	OnRoleUpdated(ctx context.Context, r *role.Role) error
}

// RoleDeleted is called after a role is deleted.
type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, roleID id.RoleID) error
}

// ──────────────────────────────────────────────────
// Assignment lifecycle hooks
// ──────────────────────────────────────────────────

// RoleAssigned is called after a role is assigned to an instance.
type RoleAssigned interface {
	OnRoleAssigned(ctx context.Context, a *assignment.Assignment) error
}

// RoleUnassigned is called after a role is unassigned from an instance.
type RoleUnassigned interface {
	OnRoleUnassigned(ctx context.Context, a *assignment.Assignment) error
}

// ──────────────────────────────────────────────────
// Moderation hooks
// ──────────────────────────────────────────────────

// ModLogWritten is called after a moderation log entry is persisted.
type ModLogWritten interface {
	OnModLogWritten(ctx context.Context, e *modlog.Entry) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
