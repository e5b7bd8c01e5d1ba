package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/condition"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/modlog"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
)

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel           `grove:"table:herald_instance_roles"`
	ID                        string                          `grove:"id,pk"`
	Name                      string                          `grove:"name,notnull"`
	Description               string                          `grove:"description"`
	Color                     string                          `grove:"color"`
	IconURL                   string                          `grove:"icon_url"`
	Target                    string                          `grove:"target,notnull"`
	CondFormula               condition.Node                  `grove:"cond_formula,type:jsonb"`
	CanEditMembersByModerator bool                            `grove:"can_edit_members_by_moderator,notnull"`
	DisplayOrder              int                             `grove:"display_order,notnull"`
	Policies                  map[policy.Name]policy.Override `grove:"policies,type:jsonb"`
	CreatedAt                 time.Time                       `grove:"created_at,notnull"`
	UpdatedAt                 time.Time                       `grove:"updated_at,notnull"`
	LastUsedAt                *time.Time                      `grove:"last_used_at"`
}

func roleToModel(r *role.Role) (*roleModel, error) {
	return &roleModel{
		ID:                        r.ID.String(),
		Name:                      r.Name,
		Description:               r.Description,
		Color:                     r.Color,
		IconURL:                   r.IconURL,
		Target:                    string(r.Target),
		CondFormula:               r.CondFormula,
		CanEditMembersByModerator: r.CanEditMembersByModerator,
		DisplayOrder:              r.DisplayOrder,
		Policies:                  r.Policies,
		CreatedAt:                 r.CreatedAt,
		UpdatedAt:                 r.UpdatedAt,
		LastUsedAt:                r.LastUsedAt,
	}, nil
}

func roleFromModel(m *roleModel) (*role.Role, error) {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &role.Role{
		ID:                        rid,
		Name:                      m.Name,
		Description:               m.Description,
		Color:                     m.Color,
		IconURL:                   m.IconURL,
		Target:                    role.Target(m.Target),
		CondFormula:               m.CondFormula,
		CanEditMembersByModerator: m.CanEditMembersByModerator,
		DisplayOrder:              m.DisplayOrder,
		Policies:                  m.Policies,
		CreatedAt:                 m.CreatedAt,
		UpdatedAt:                 m.UpdatedAt,
		LastUsedAt:                m.LastUsedAt,
	}, nil
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:herald_instance_role_assignments"`
	ID              string     `grove:"id,pk"`
	InstanceID      string     `grove:"instance_id,notnull"`
	RoleID          string     `grove:"role_id,notnull"`
	ExpiresAt       *time.Time `grove:"expires_at"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
}

func assignmentToModel(a *assignment.Assignment) *assignmentModel {
	return &assignmentModel{
		ID:         a.ID.String(),
		InstanceID: a.InstanceID,
		RoleID:     a.RoleID.String(),
		ExpiresAt:  a.ExpiresAt,
		CreatedAt:  a.CreatedAt,
	}
}

func assignmentFromModel(m *assignmentModel) *assignment.Assignment {
	aid, _ := id.ParseAssignmentID(m.ID) //nolint:errcheck // stored IDs are always valid
	rid, _ := id.ParseRoleID(m.RoleID)   //nolint:errcheck // stored IDs are always valid
	return &assignment.Assignment{
		ID:         aid,
		InstanceID: m.InstanceID,
		RoleID:     rid,
		ExpiresAt:  m.ExpiresAt,
		CreatedAt:  m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Moderation log model
// ──────────────────────────────────────────────────

type modLogModel struct {
	grove.BaseModel `grove:"table:herald_moderation_logs"`
	ID              string         `grove:"id,pk"`
	ModeratorID     string         `grove:"moderator_id,notnull"`
	Type            string         `grove:"type,notnull"`
	Info            map[string]any `grove:"info,type:jsonb"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
}

func modLogToModel(e *modlog.Entry) (*modLogModel, error) {
	return &modLogModel{
		ID:          e.ID.String(),
		ModeratorID: e.ModeratorID,
		Type:        string(e.Type),
		Info:        e.Info,
		CreatedAt:   e.CreatedAt,
	}, nil
}

func modLogFromModel(m *modLogModel) (*modlog.Entry, error) {
	lid, _ := id.ParseModLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &modlog.Entry{
		ID:          lid,
		ModeratorID: m.ModeratorID,
		Type:        modlog.Type(m.Type),
		Info:        m.Info,
		CreatedAt:   m.CreatedAt,
	}, nil
}
