package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Herald store (SQLite).
var Migrations = migrate.NewGroup("herald")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_instance_roles",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS herald_instance_roles (
    id                            TEXT PRIMARY KEY,
    name                          TEXT NOT NULL,
    description                   TEXT NOT NULL DEFAULT '',
    color                         TEXT NOT NULL DEFAULT '',
    icon_url                      TEXT NOT NULL DEFAULT '',
    target                        TEXT NOT NULL DEFAULT 'manual',
    cond_formula                  TEXT NOT NULL DEFAULT '{}',
    can_edit_members_by_moderator INTEGER NOT NULL DEFAULT 0,
    display_order                 INTEGER NOT NULL DEFAULT 0,
    policies                      TEXT NOT NULL DEFAULT '{}',
    created_at                    TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at                    TEXT NOT NULL DEFAULT (datetime('now')),
    last_used_at                  TEXT
);

CREATE INDEX IF NOT EXISTS idx_herald_instance_roles_order ON herald_instance_roles (display_order, id);
CREATE INDEX IF NOT EXISTS idx_herald_instance_roles_target ON herald_instance_roles (target);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS herald_instance_roles`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_instance_role_assignments",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS herald_instance_role_assignments (
    id          TEXT PRIMARY KEY,
    instance_id TEXT NOT NULL,
    role_id     TEXT NOT NULL REFERENCES herald_instance_roles(id) ON DELETE CASCADE,
    expires_at  TEXT,
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(instance_id, role_id)
);

CREATE INDEX IF NOT EXISTS idx_herald_assignments_instance ON herald_instance_role_assignments (instance_id);
CREATE INDEX IF NOT EXISTS idx_herald_assignments_role ON herald_instance_role_assignments (role_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS herald_instance_role_assignments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_moderation_logs",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS herald_moderation_logs (
    id           TEXT PRIMARY KEY,
    moderator_id TEXT NOT NULL,
    type         TEXT NOT NULL,
    info         TEXT NOT NULL DEFAULT '{}',
    created_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_herald_modlogs_moderator ON herald_moderation_logs (moderator_id);
CREATE INDEX IF NOT EXISTS idx_herald_modlogs_created ON herald_moderation_logs (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS herald_moderation_logs`)
				return err
			},
		},
	)
}
