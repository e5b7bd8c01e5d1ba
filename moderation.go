package herald

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xraph/herald/id"
	"github.com/xraph/herald/modlog"
	"github.com/xraph/herald/role"
)

// Moderator is the user performing a change. Administrators may edit the
// members of any role; other moderators only those of roles with
// CanEditMembersByModerator set.
type Moderator struct {
	ID      string `json:"id"`
	IsAdmin bool   `json:"is_admin"`
}

// CanEditMembers reports whether m may assign r to or unassign it from
// instances.
func (m *Moderator) CanEditMembers(r *role.Role) bool {
	return m.IsAdmin || r.CanEditMembersByModerator
}

// ListModLogs returns moderation log entries, newest first.
func (e *Engine) ListModLogs(ctx context.Context, filter *modlog.QueryFilter) ([]*modlog.Entry, int64, error) {
	entries, err := e.store.ListModLogs(ctx, filter)
	if err != nil {
		return nil, 0, wrap("list moderation logs", err)
	}
	total, err := e.store.CountModLogs(ctx, filter)
	if err != nil {
		return nil, 0, wrap("count moderation logs", err)
	}
	return entries, total, nil
}

// PurgeModLogs deletes moderation log entries older than before.
func (e *Engine) PurgeModLogs(ctx context.Context, before time.Time) (int64, error) {
	n, err := e.store.PurgeModLogs(ctx, before)
	if err != nil {
		return 0, wrap("purge moderation logs", err)
	}
	return n, nil
}

// writeModLog records a moderation action. Failures are logged only; the
// change it describes has already been committed.
func (e *Engine) writeModLog(ctx context.Context, mod *Moderator, typ modlog.Type, info map[string]any) {
	if mod == nil {
		return
	}
	entry := &modlog.Entry{
		ID:          id.NewModLogID(),
		ModeratorID: mod.ID,
		Type:        typ,
		Info:        info,
		CreatedAt:   e.now().UTC(),
	}
	if err := e.store.CreateModLog(ctx, entry); err != nil {
		e.logger.Warn("moderation log write failed",
			"type", string(typ),
			"moderator_id", mod.ID,
			"error", err,
		)
		return
	}
	e.plugins.EmitModLogWritten(ctx, entry)
}

// instanceHost returns the instance's hostname for log entries, or "" when
// it cannot be looked up.
func (e *Engine) instanceHost(ctx context.Context, instanceID string) string {
	if e.instances == nil {
		return ""
	}
	inst, err := e.instances.GetInstance(ctx, instanceID)
	if err != nil {
		e.logger.Debug("instance lookup for moderation log failed", "instance_id", instanceID, "error", err)
		return ""
	}
	return inst.Host
}

// snapshot turns a role into a plain JSON-shaped map so that every store
// backend persists it the same way.
func snapshot(r *role.Role) map[string]any {
	raw, err := json.Marshal(r)
	if err != nil {
		return map[string]any{"id": r.ID.String()}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"id": r.ID.String()}
	}
	return out
}
