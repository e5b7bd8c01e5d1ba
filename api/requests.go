package api

import (
	"github.com/xraph/herald/condition"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
)

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// CreateRoleRequest is the body for creating a role.
type CreateRoleRequest struct {
	Name                      string                          `json:"name" description:"Role name"`
	Description               string                          `json:"description,omitempty" description:"Human-readable description"`
	Color                     string                          `json:"color,omitempty" description:"Display color"`
	IconURL                   string                          `json:"icon_url,omitempty" description:"Badge icon URL"`
	Target                    string                          `json:"target,omitempty" description:"manual (default) or conditional"`
	CondFormula               *condition.Node                 `json:"cond_formula,omitempty" description:"Condition tree for conditional roles"`
	CanEditMembersByModerator bool                            `json:"can_edit_members_by_moderator,omitempty" description:"Let non-admin moderators assign the role"`
	DisplayOrder              int                             `json:"display_order,omitempty" description:"Sort key"`
	Policies                  map[policy.Name]policy.Override `json:"policies,omitempty" description:"Policy overrides keyed by policy name"`
}

// UpdateRoleRequest is the body for updating a role. Absent fields keep
// their stored value.
type UpdateRoleRequest struct {
	Name                      *string                         `json:"name,omitempty" description:"Role name"`
	Description               *string                         `json:"description,omitempty" description:"Human-readable description"`
	Color                     *string                         `json:"color,omitempty" description:"Display color"`
	IconURL                   *string                         `json:"icon_url,omitempty" description:"Badge icon URL"`
	Target                    *string                         `json:"target,omitempty" description:"manual or conditional"`
	CondFormula               *condition.Node                 `json:"cond_formula,omitempty" description:"Condition tree for conditional roles"`
	CanEditMembersByModerator *bool                           `json:"can_edit_members_by_moderator,omitempty" description:"Let non-admin moderators assign the role"`
	DisplayOrder              *int                            `json:"display_order,omitempty" description:"Sort key"`
	Policies                  map[policy.Name]policy.Override `json:"policies,omitempty" description:"Replacement policy overrides"`
}

// GetRoleRequest is the path parameter for getting a role.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// ListRolesRequest holds query parameters for listing roles.
type ListRolesRequest struct {
	Target string `query:"target" description:"Filter by target (manual, conditional)"`
	Search string `query:"search" description:"Search by name"`
	Limit  int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// toRole builds a role from a create request.
func (r *CreateRoleRequest) toRole() *role.Role {
	out := &role.Role{
		Name:                      r.Name,
		Description:               r.Description,
		Color:                     r.Color,
		IconURL:                   r.IconURL,
		Target:                    role.Target(r.Target),
		CanEditMembersByModerator: r.CanEditMembersByModerator,
		DisplayOrder:              r.DisplayOrder,
		Policies:                  r.Policies,
	}
	if r.CondFormula != nil {
		out.CondFormula = *r.CondFormula
	}
	return out
}

// apply copies the fields present in the request onto rl.
func (r *UpdateRoleRequest) apply(rl *role.Role) {
	if r.Name != nil {
		rl.Name = *r.Name
	}
	if r.Description != nil {
		rl.Description = *r.Description
	}
	if r.Color != nil {
		rl.Color = *r.Color
	}
	if r.IconURL != nil {
		rl.IconURL = *r.IconURL
	}
	if r.Target != nil {
		rl.Target = role.Target(*r.Target)
	}
	if r.CondFormula != nil {
		rl.CondFormula = *r.CondFormula
	}
	if r.CanEditMembersByModerator != nil {
		rl.CanEditMembersByModerator = *r.CanEditMembersByModerator
	}
	if r.DisplayOrder != nil {
		rl.DisplayOrder = *r.DisplayOrder
	}
	if r.Policies != nil {
		rl.Policies = r.Policies
	}
}

// ──────────────────────────────────────────────────
// Assignment requests
// ──────────────────────────────────────────────────

// AssignRoleRequest is the body for assigning a role to an instance.
type AssignRoleRequest struct {
	InstanceID string `json:"instance_id" description:"Instance ID"`
	ExpiresAt  string `json:"expires_at,omitempty" description:"Expiry (RFC3339); absent means permanent"`
}

// UnassignRoleRequest is the body for removing a role from an instance.
type UnassignRoleRequest struct {
	InstanceID string `json:"instance_id" description:"Instance ID"`
}

// ListRoleAssignmentsRequest holds query parameters for listing a role's
// assignments.
type ListRoleAssignmentsRequest struct {
	Limit  int `query:"limit" description:"Maximum results (default: 50)"`
	Offset int `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Policy requests
// ──────────────────────────────────────────────────

// InstanceRequest is the path parameter for instance-scoped reads.
type InstanceRequest struct {
	InstanceID string `path:"instanceId" description:"Instance ID"`
}

// ──────────────────────────────────────────────────
// Moderation log requests
// ──────────────────────────────────────────────────

// ListModLogsRequest holds query parameters for querying moderation logs.
type ListModLogsRequest struct {
	ModeratorID string `query:"moderator_id" description:"Filter by moderator"`
	Type        string `query:"type" description:"Filter by action type"`
	After       string `query:"after" description:"After timestamp (RFC3339)"`
	Before      string `query:"before" description:"Before timestamp (RFC3339)"`
	Limit       int    `query:"limit" description:"Maximum results"`
	Offset      int    `query:"offset" description:"Results to skip"`
}
