package herald

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/condition"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/modlog"
	"github.com/xraph/herald/role"
)

func wrap(op string, err error) error { return fmt.Errorf("herald: %s: %w", op, err) }

// ValidateRole checks a role definition before it is stored. An empty
// target defaults to manual.
func ValidateRole(r *role.Role) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRole)
	}
	if r.Target == "" {
		r.Target = role.TargetManual
	}
	if !r.Target.Valid() {
		return fmt.Errorf("%w: unknown target %q", ErrInvalidRole, r.Target)
	}
	if r.IsConditional() {
		if err := condition.Validate(r.CondFormula); err != nil {
			return err
		}
	}
	for name, o := range r.Policies {
		if err := o.Validate(name); err != nil {
			return err
		}
	}
	return nil
}

// CreateRole stores a new role and returns the stored copy.
func (e *Engine) CreateRole(ctx context.Context, r *role.Role, mod *Moderator) (*role.Role, error) {
	r = r.Clone()
	if err := ValidateRole(r); err != nil {
		return nil, err
	}
	if r.ID.IsNil() {
		r.ID = id.NewRoleID()
	}
	now := e.now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.LastUsedAt = nil

	if err := e.store.CreateRole(ctx, r); err != nil {
		return nil, wrap("create role", err)
	}
	created, err := e.store.GetRole(ctx, r.ID)
	if err != nil {
		return nil, wrap("create role", err)
	}
	e.InvalidateRoles()

	e.plugins.EmitRoleCreated(ctx, created)
	e.writeModLog(ctx, mod, modlog.TypeCreateInstanceRole, map[string]any{
		"roleId": created.ID.String(),
		"role":   snapshot(created),
	})
	return created, nil
}

// UpdateRole replaces the definition of an existing role. Timestamps other
// than UpdatedAt are carried over from the stored row.
func (e *Engine) UpdateRole(ctx context.Context, r *role.Role, mod *Moderator) (*role.Role, error) {
	before, err := e.store.GetRole(ctx, r.ID)
	if err != nil {
		return nil, wrap("update role", err)
	}
	r = r.Clone()
	if err := ValidateRole(r); err != nil {
		return nil, err
	}
	r.CreatedAt = before.CreatedAt
	r.LastUsedAt = before.LastUsedAt
	r.UpdatedAt = e.now().UTC()

	if err := e.store.UpdateRole(ctx, r); err != nil {
		return nil, wrap("update role", err)
	}
	after, err := e.store.GetRole(ctx, r.ID)
	if err != nil {
		return nil, wrap("update role", err)
	}
	e.InvalidateRoles()

	e.plugins.EmitRoleUpdated(ctx, after)
	e.writeModLog(ctx, mod, modlog.TypeUpdateInstanceRole, map[string]any{
		"roleId": after.ID.String(),
		"before": snapshot(before),
		"after":  snapshot(after),
	})
	return after, nil
}

// DeleteRole removes a role together with its assignments.
func (e *Engine) DeleteRole(ctx context.Context, roleID id.RoleID, mod *Moderator) error {
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		return wrap("delete role", err)
	}
	if err := e.store.DeleteRole(ctx, roleID); err != nil {
		return wrap("delete role", err)
	}
	e.InvalidateRoles()
	e.InvalidateAssignments()

	e.plugins.EmitRoleDeleted(ctx, roleID)
	e.writeModLog(ctx, mod, modlog.TypeDeleteInstanceRole, map[string]any{
		"roleId": roleID.String(),
		"role":   snapshot(r),
	})
	return nil
}

// GetRole returns a role by ID.
func (e *Engine) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, wrap("get role", err)
	}
	return r, nil
}

// ListRoles returns roles matching filter and the total match count.
func (e *Engine) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, int64, error) {
	roles, err := e.store.ListRoles(ctx, filter)
	if err != nil {
		return nil, 0, wrap("list roles", err)
	}
	var countFilter *role.ListFilter
	if filter != nil {
		countFilter = &role.ListFilter{Target: filter.Target, Search: filter.Search}
	}
	total, err := e.store.CountRoles(ctx, countFilter)
	if err != nil {
		return nil, 0, wrap("count roles", err)
	}
	return roles, total, nil
}

// CountInstances returns how many instances hold the role, expired rows
// not yet cleaned up included.
func (e *Engine) CountInstances(ctx context.Context, roleID id.RoleID) (int64, error) {
	n, err := e.store.CountAssignments(ctx, &assignment.ListFilter{RoleID: &roleID})
	if err != nil {
		return 0, wrap("count instances", err)
	}
	return n, nil
}

// RoleAssignments lists a role's assignments, expired rows included.
func (e *Engine) RoleAssignments(ctx context.Context, roleID id.RoleID, limit, offset int) ([]*assignment.Assignment, error) {
	if _, err := e.store.GetRole(ctx, roleID); err != nil {
		return nil, wrap("list role assignments", err)
	}
	as, err := e.store.ListAssignments(ctx, &assignment.ListFilter{RoleID: &roleID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, wrap("list role assignments", err)
	}
	return as, nil
}
