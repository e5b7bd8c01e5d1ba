// Package role defines the instance Role entity and its store interface.
package role

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/herald/condition"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/policy"
)

// ErrNotFound is returned by stores for a missing role.
var ErrNotFound = errors.New("herald: role not found")

// Target selects how a role reaches an instance.
type Target string

const (
	// TargetManual roles apply only through explicit assignment.
	TargetManual Target = "manual"
	// TargetConditional roles apply whenever CondFormula matches. They
	// never have assignment rows.
	TargetConditional Target = "conditional"
)

// Valid reports whether t is a known target.
func (t Target) Valid() bool { return t == TargetManual || t == TargetConditional }

// Role is a named bundle of policy overrides for instances.
type Role struct {
	ID          id.RoleID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Color       string    `json:"color,omitempty" db:"color"`
	IconURL     string    `json:"icon_url,omitempty" db:"icon_url"`

	Target      Target         `json:"target" db:"target"`
	CondFormula condition.Node `json:"cond_formula" db:"cond_formula"`

	CanEditMembersByModerator bool `json:"can_edit_members_by_moderator" db:"can_edit_members_by_moderator"`
	DisplayOrder              int  `json:"display_order" db:"display_order"`

	Policies map[policy.Name]policy.Override `json:"policies" db:"policies"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// IsConditional reports whether the role is matched by condition.
func (r *Role) IsConditional() bool { return r.Target == TargetConditional }

// Clone returns a deep copy of r.
func (r *Role) Clone() *Role {
	cp := *r
	cp.CondFormula = r.CondFormula.Clone()
	if r.Policies != nil {
		cp.Policies = make(map[policy.Name]policy.Override, len(r.Policies))
		for k, v := range r.Policies {
			cp.Policies[k] = v
		}
	}
	if r.LastUsedAt != nil {
		t := *r.LastUsedAt
		cp.LastUsedAt = &t
	}
	return &cp
}

// ListFilter contains filters for listing roles.
type ListFilter struct {
	Target Target `json:"target,omitempty"`
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines persistence operations for roles.
type Store interface {
	// CreateRole persists a new role.
	CreateRole(ctx context.Context, r *Role) error

	// GetRole retrieves a role by ID.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// UpdateRole persists changes to a role.
	UpdateRole(ctx context.Context, r *Role) error

	// DeleteRole removes a role and every assignment that references it.
	DeleteRole(ctx context.Context, roleID id.RoleID) error

	// ListRoles returns roles matching the filter, ordered by
	// display order then ID. A nil filter returns every role.
	ListRoles(ctx context.Context, filter *ListFilter) ([]*Role, error)

	// CountRoles returns the number of roles matching the filter.
	CountRoles(ctx context.Context, filter *ListFilter) (int64, error)

	// TouchRole sets the role's last-used time.
	TouchRole(ctx context.Context, roleID id.RoleID, at time.Time) error
}
