package herald

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/modlog"
	"github.com/xraph/herald/role"
)

// Assign gives a manual role to an instance, optionally until expiresAt.
// An expired row for the same pair is replaced. With a moderator the
// change is access-checked and logged.
func (e *Engine) Assign(ctx context.Context, instanceID string, roleID id.RoleID, expiresAt *time.Time, mod *Moderator) (*assignment.Assignment, error) {
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, wrap("assign", err)
	}
	if r.IsConditional() {
		return nil, fmt.Errorf("%w: %s", ErrConditionalRole, roleID)
	}
	if mod != nil && !mod.CanEditMembers(r) {
		return nil, fmt.Errorf("%w: moderator %s cannot edit members of role %s", ErrAccessDenied, mod.ID, roleID)
	}

	now := e.now()
	if err := e.clearStale(ctx, instanceID, roleID, now); err != nil {
		return nil, err
	}

	a := &assignment.Assignment{
		ID:         id.NewAssignmentID(),
		InstanceID: instanceID,
		RoleID:     roleID,
		CreatedAt:  now.UTC(),
	}
	if expiresAt != nil {
		t := expiresAt.UTC()
		a.ExpiresAt = &t
	}
	if err := e.store.CreateAssignment(ctx, a); err != nil {
		return nil, wrap("assign", err)
	}
	e.InvalidateInstance(instanceID)
	e.touch(ctx, roleID, now)

	e.plugins.EmitRoleAssigned(ctx, a)
	if mod != nil {
		e.writeModLog(ctx, mod, modlog.TypeAssignInstanceRole, e.assignmentInfo(ctx, r, instanceID, a.ExpiresAt))
	}
	return a, nil
}

// clearStale fails when the pair already has a live row and deletes an
// expired one.
func (e *Engine) clearStale(ctx context.Context, instanceID string, roleID id.RoleID, now time.Time) error {
	existing, err := e.store.FindAssignment(ctx, instanceID, roleID)
	if errors.Is(err, assignment.ErrNotFound) {
		return nil
	}
	if err != nil {
		return wrap("assign", err)
	}
	if !existing.Expired(now) {
		return fmt.Errorf("%w: instance %s role %s", ErrAlreadyAssigned, instanceID, roleID)
	}
	if err := e.store.DeleteAssignment(ctx, existing.ID); err != nil && !errors.Is(err, assignment.ErrNotFound) {
		return wrap("remove expired assignment", err)
	}
	e.logger.Debug("removed expired assignment",
		"assignment_id", existing.ID.String(),
		"instance_id", instanceID,
		"role_id", roleID.String(),
	)
	return nil
}

// Unassign takes a manual role away from an instance. An expired row is
// removed and reported as ErrNotAssigned.
func (e *Engine) Unassign(ctx context.Context, instanceID string, roleID id.RoleID, mod *Moderator) error {
	a, err := e.store.FindAssignment(ctx, instanceID, roleID)
	if err != nil {
		return wrap("unassign", err)
	}

	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		return wrap("unassign", err)
	}
	if mod != nil && !mod.CanEditMembers(r) {
		return fmt.Errorf("%w: moderator %s cannot edit members of role %s", ErrAccessDenied, mod.ID, roleID)
	}

	now := e.now()
	if a.Expired(now) {
		if err := e.store.DeleteAssignment(ctx, a.ID); err != nil && !errors.Is(err, assignment.ErrNotFound) {
			return wrap("remove expired assignment", err)
		}
		e.InvalidateInstance(instanceID)
		e.logger.Debug("removed expired assignment",
			"assignment_id", a.ID.String(),
			"instance_id", instanceID,
			"role_id", roleID.String(),
		)
		return fmt.Errorf("%w: instance %s role %s", ErrNotAssigned, instanceID, roleID)
	}

	if err := e.store.DeleteAssignment(ctx, a.ID); err != nil {
		return wrap("unassign", err)
	}
	e.InvalidateInstance(instanceID)
	e.touch(ctx, roleID, now)

	e.plugins.EmitRoleUnassigned(ctx, a)
	if mod != nil {
		e.writeModLog(ctx, mod, modlog.TypeUnassignInstanceRole, e.assignmentInfo(ctx, r, instanceID, a.ExpiresAt))
	}
	return nil
}

// touch records that the role was used. The role cache is left alone since
// LastUsedAt does not affect resolution.
func (e *Engine) touch(ctx context.Context, roleID id.RoleID, at time.Time) {
	if err := e.store.TouchRole(ctx, roleID, at.UTC()); err != nil {
		e.logger.Warn("touch role failed", "role_id", roleID.String(), "error", err)
	}
}

func (e *Engine) assignmentInfo(ctx context.Context, r *role.Role, instanceID string, expiresAt *time.Time) map[string]any {
	info := map[string]any{
		"roleId":           r.ID.String(),
		"roleName":         r.Name,
		"instanceId":       instanceID,
		"instanceHostname": e.instanceHost(ctx, instanceID),
		"expiresAt":        nil,
	}
	if expiresAt != nil {
		info["expiresAt"] = expiresAt.UTC().Format(time.RFC3339Nano)
	}
	return info
}
