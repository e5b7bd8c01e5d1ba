package sqlite

import (
	"encoding/json"
	"fmt"
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
	ID                        string     `grove:"id,pk"`
	Name                      string     `grove:"name,notnull"`
	Description               string     `grove:"description"`
	Color                     string     `grove:"color"`
	IconURL                   string     `grove:"icon_url"`
	Target                    string     `grove:"target,notnull"`
	CondFormula               string     `grove:"cond_formula"` // JSON text
	CanEditMembersByModerator bool       `grove:"can_edit_members_by_moderator,notnull"`
	DisplayOrder              int        `grove:"display_order,notnull"`
	Policies                  string     `grove:"policies"` // JSON text
	CreatedAt                 time.Time  `grove:"created_at,notnull"`
	UpdatedAt                 time.Time  `grove:"updated_at,notnull"`
	LastUsedAt                *time.Time `grove:"last_used_at"`
}

func roleToModel(r *role.Role) (*roleModel, error) {
	formula, err := json.Marshal(r.CondFormula)
	if err != nil {
		return nil, fmt.Errorf("marshal role formula: %w", err)
	}
	policies, err := json.Marshal(r.Policies)
	if err != nil {
		return nil, fmt.Errorf("marshal role policies: %w", err)
	}
	return &roleModel{
		ID:                        r.ID.String(),
		Name:                      r.Name,
		Description:               r.Description,
		Color:                     r.Color,
		IconURL:                   r.IconURL,
		Target:                    string(r.Target),
		CondFormula:               string(formula),
		CanEditMembersByModerator: r.CanEditMembersByModerator,
		DisplayOrder:              r.DisplayOrder,
		Policies:                  string(policies),
		CreatedAt:                 r.CreatedAt,
		UpdatedAt:                 r.UpdatedAt,
		LastUsedAt:                r.LastUsedAt,
	}, nil
}

func roleFromModel(m *roleModel) (*role.Role, error) {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	var formula condition.Node
	if m.CondFormula != "" {
		if err := json.Unmarshal([]byte(m.CondFormula), &formula); err != nil {
			return nil, fmt.Errorf("unmarshal role formula: %w", err)
		}
	}
	var policies map[policy.Name]policy.Override
	if m.Policies != "" {
		if err := json.Unmarshal([]byte(m.Policies), &policies); err != nil {
			return nil, fmt.Errorf("unmarshal role policies: %w", err)
		}
	}
	return &role.Role{
		ID:                        rid,
		Name:                      m.Name,
		Description:               m.Description,
		Color:                     m.Color,
		IconURL:                   m.IconURL,
		Target:                    role.Target(m.Target),
		CondFormula:               formula,
		CanEditMembersByModerator: m.CanEditMembersByModerator,
		DisplayOrder:              m.DisplayOrder,
		Policies:                  policies,
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
	ID              string    `grove:"id,pk"`
	ModeratorID     string    `grove:"moderator_id,notnull"`
	Type            string    `grove:"type,notnull"`
	Info            string    `grove:"info"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func modLogToModel(e *modlog.Entry) (*modLogModel, error) {
	info, err := json.Marshal(e.Info)
	if err != nil {
		return nil, fmt.Errorf("marshal modlog info: %w", err)
	}
	return &modLogModel{
		ID:          e.ID.String(),
		ModeratorID: e.ModeratorID,
		Type:        string(e.Type),
		Info:        string(info),
		CreatedAt:   e.CreatedAt,
	}, nil
}

func modLogFromModel(m *modLogModel) (*modlog.Entry, error) {
	lid, _ := id.ParseModLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	var info map[string]any
	if m.Info != "" {
		if err := json.Unmarshal([]byte(m.Info), &info); err != nil {
			return nil, fmt.Errorf("unmarshal modlog info: %w", err)
		}
	}
	return &modlog.Entry{
		ID:          lid,
		ModeratorID: m.ModeratorID,
		Type:        modlog.Type(m.Type),
		Info:        info,
		CreatedAt:   m.CreatedAt,
	}, nil
}
