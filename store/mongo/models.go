package mongo

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
	ID                        string                 `grove:"id,pk"                         bson:"_id"`
	Name                      string                 `grove:"name"                          bson:"name"`
	Description               string                 `grove:"description"                   bson:"description"`
	Color                     string                 `grove:"color"                         bson:"color"`
	IconURL                   string                 `grove:"icon_url"                      bson:"icon_url"`
	Target                    string                 `grove:"target"                        bson:"target"`
	CondFormula               *conditionDoc          `grove:"cond_formula"                  bson:"cond_formula,omitempty"`
	CanEditMembersByModerator bool                   `grove:"can_edit_members_by_moderator" bson:"can_edit_members_by_moderator"`
	DisplayOrder              int                    `grove:"display_order"                 bson:"display_order"`
	Policies                  map[string]overrideDoc `grove:"policies"                      bson:"policies,omitempty"`
	CreatedAt                 time.Time              `grove:"created_at"                    bson:"created_at"`
	UpdatedAt                 time.Time              `grove:"updated_at"                    bson:"updated_at"`
	LastUsedAt                *time.Time             `grove:"last_used_at"                  bson:"last_used_at,omitempty"`
}

// conditionDoc is the BSON shape of a condition.Node.
type conditionDoc struct {
	Type      string         `bson:"type"`
	ID        string         `bson:"id,omitempty"`
	Values    []conditionDoc `bson:"values,omitempty"`
	Operand   *conditionDoc  `bson:"operand,omitempty"`
	Sec       int64          `bson:"sec,omitempty"`
	Threshold int64          `bson:"threshold,omitempty"`
}

type overrideDoc struct {
	Value      int64 `bson:"value"`
	Priority   int   `bson:"priority"`
	UseDefault bool  `bson:"use_default"`
}

func conditionToDoc(n condition.Node) *conditionDoc {
	if n.IsZero() {
		return nil
	}
	d := &conditionDoc{
		Type:      string(n.Kind),
		ID:        n.ID,
		Sec:       n.Sec,
		Threshold: n.Threshold,
	}
	if n.Values != nil {
		d.Values = make([]conditionDoc, len(n.Values))
		for i, v := range n.Values {
			if c := conditionToDoc(v); c != nil {
				d.Values[i] = *c
			}
		}
	}
	if n.Operand != nil {
		d.Operand = conditionToDoc(*n.Operand)
	}
	return d
}

func conditionFromDoc(d *conditionDoc) condition.Node {
	if d == nil {
		return condition.Node{}
	}
	n := condition.Node{
		Kind:      condition.Kind(d.Type),
		ID:        d.ID,
		Sec:       d.Sec,
		Threshold: d.Threshold,
	}
	if n.Kind == condition.KindAnd || n.Kind == condition.KindOr {
		n.Values = make([]condition.Node, len(d.Values))
		for i := range d.Values {
			n.Values[i] = conditionFromDoc(&d.Values[i])
		}
	}
	if d.Operand != nil {
		op := conditionFromDoc(d.Operand)
		n.Operand = &op
	}
	return n
}

func roleToModel(r *role.Role) *roleModel {
	m := &roleModel{
		ID:                        r.ID.String(),
		Name:                      r.Name,
		Description:               r.Description,
		Color:                     r.Color,
		IconURL:                   r.IconURL,
		Target:                    string(r.Target),
		CondFormula:               conditionToDoc(r.CondFormula),
		CanEditMembersByModerator: r.CanEditMembersByModerator,
		DisplayOrder:              r.DisplayOrder,
		CreatedAt:                 r.CreatedAt,
		UpdatedAt:                 r.UpdatedAt,
		LastUsedAt:                r.LastUsedAt,
	}
	if len(r.Policies) > 0 {
		m.Policies = make(map[string]overrideDoc, len(r.Policies))
		for name, o := range r.Policies {
			m.Policies[string(name)] = overrideDoc{
				Value:      int64(o.Value),
				Priority:   o.Priority,
				UseDefault: o.UseDefault,
			}
		}
	}
	return m
}

func roleFromModel(m *roleModel) *role.Role {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	r := &role.Role{
		ID:                        rid,
		Name:                      m.Name,
		Description:               m.Description,
		Color:                     m.Color,
		IconURL:                   m.IconURL,
		Target:                    role.Target(m.Target),
		CondFormula:               conditionFromDoc(m.CondFormula),
		CanEditMembersByModerator: m.CanEditMembersByModerator,
		DisplayOrder:              m.DisplayOrder,
		CreatedAt:                 m.CreatedAt,
		UpdatedAt:                 m.UpdatedAt,
		LastUsedAt:                m.LastUsedAt,
	}
	if len(m.Policies) > 0 {
		r.Policies = make(map[policy.Name]policy.Override, len(m.Policies))
		for name, o := range m.Policies {
			r.Policies[policy.Name(name)] = policy.Override{
				Value:      policy.Value(o.Value),
				Priority:   o.Priority,
				UseDefault: o.UseDefault,
			}
		}
	}
	return r
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:herald_instance_role_assignments"`
	ID              string     `grove:"id,pk"       bson:"_id"`
	InstanceID      string     `grove:"instance_id" bson:"instance_id"`
	RoleID          string     `grove:"role_id"     bson:"role_id"`
	ExpiresAt       *time.Time `grove:"expires_at"  bson:"expires_at,omitempty"`
	CreatedAt       time.Time  `grove:"created_at"  bson:"created_at"`
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
	ID              string         `grove:"id,pk"        bson:"_id"`
	ModeratorID     string         `grove:"moderator_id" bson:"moderator_id"`
	Type            string         `grove:"type"         bson:"type"`
	Info            map[string]any `grove:"info"         bson:"info,omitempty"`
	CreatedAt       time.Time      `grove:"created_at"   bson:"created_at"`
}

func modLogToModel(e *modlog.Entry) *modLogModel {
	return &modLogModel{
		ID:          e.ID.String(),
		ModeratorID: e.ModeratorID,
		Type:        string(e.Type),
		Info:        e.Info,
		CreatedAt:   e.CreatedAt,
	}
}

func modLogFromModel(m *modLogModel) *modlog.Entry {
	lid, _ := id.ParseModLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &modlog.Entry{
		ID:          lid,
		ModeratorID: m.ModeratorID,
		Type:        modlog.Type(m.Type),
		Info:        m.Info,
		CreatedAt:   m.CreatedAt,
	}
}
