// Package sqlite provides a SQLite implementation of the Herald composite
// store using grove ORM with Go-based migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/modlog"
	"github.com/xraph/herald/role"
	"github.com/xraph/herald/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a SQLite implementation of the composite Herald store.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("herald/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("herald/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	m, err := roleToModel(r)
	if err != nil {
		return fmt.Errorf("herald: create role: %w", err)
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("herald: create role: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	err := s.sdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, role.ErrNotFound)
		}
		return nil, fmt.Errorf("herald: get role: %w", err)
	}
	r, err := roleFromModel(m)
	if err != nil {
		return nil, fmt.Errorf("herald: get role: %w", err)
	}
	return r, nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	m, err := roleToModel(r)
	if err != nil {
		return fmt.Errorf("herald: update role: %w", err)
	}
	if _, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("herald: update role: %w", err)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("herald: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	// Foreign keys are off by default in SQLite, so the cascade is explicit.
	_, err = tx.NewDelete((*assignmentModel)(nil)).
		Where("role_id = ?", roleID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("herald: delete role assignments: %w", err)
	}

	res, err := tx.NewDelete((*roleModel)(nil)).
		Where("id = ?", roleID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("herald: delete role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("herald: delete role rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("role %s: %w", roleID, role.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("herald: commit tx: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.sdb.NewSelect(&models).OrderExpr("display_order ASC, id ASC")
	if filter != nil {
		if filter.Target != "" {
			q = q.Where("target = ?", string(filter.Target))
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("herald: list roles: %w", err)
	}
	result := make([]*role.Role, len(models))
	for i := range models {
		r, err := roleFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("herald: list roles: %w", err)
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*roleModel)(nil))
	if filter != nil {
		if filter.Target != "" {
			q = q.Where("target = ?", string(filter.Target))
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("herald: count roles: %w", err)
	}
	return count, nil
}

func (s *Store) TouchRole(ctx context.Context, roleID id.RoleID, at time.Time) error {
	m := new(roleModel)
	if err := s.sdb.NewSelect(m).Where("id = ?", roleID.String()).Scan(ctx); err != nil {
		if isNoRows(err) {
			return fmt.Errorf("role %s: %w", roleID, role.ErrNotFound)
		}
		return fmt.Errorf("herald: touch role: %w", err)
	}
	m.LastUsedAt = &at
	if _, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("herald: touch role: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Assignment operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(ctx context.Context, a *assignment.Assignment) error {
	m := assignmentToModel(a)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("instance %s role %s: %w", a.InstanceID, a.RoleID, assignment.ErrConflict)
		}
		return fmt.Errorf("herald: create assignment: %w", err)
	}
	return nil
}

func (s *Store) GetAssignment(ctx context.Context, assID id.AssignmentID) (*assignment.Assignment, error) {
	m := new(assignmentModel)
	err := s.sdb.NewSelect(m).Where("id = ?", assID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("assignment %s: %w", assID, assignment.ErrNotFound)
		}
		return nil, fmt.Errorf("herald: get assignment: %w", err)
	}
	return assignmentFromModel(m), nil
}

func (s *Store) FindAssignment(ctx context.Context, instanceID string, roleID id.RoleID) (*assignment.Assignment, error) {
	m := new(assignmentModel)
	err := s.sdb.NewSelect(m).
		Where("instance_id = ?", instanceID).
		Where("role_id = ?", roleID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("instance %s role %s: %w", instanceID, roleID, assignment.ErrNotFound)
		}
		return nil, fmt.Errorf("herald: find assignment: %w", err)
	}
	return assignmentFromModel(m), nil
}

func (s *Store) DeleteAssignment(ctx context.Context, assID id.AssignmentID) error {
	res, err := s.sdb.NewDelete((*assignmentModel)(nil)).
		Where("id = ?", assID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("herald: delete assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("herald: delete assignment rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("assignment %s: %w", assID, assignment.ErrNotFound)
	}
	return nil
}

func (s *Store) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC, id ASC")
	if filter != nil {
		if filter.InstanceID != "" {
			q = q.Where("instance_id = ?", filter.InstanceID)
		}
		if filter.RoleID != nil {
			q = q.Where("role_id = ?", filter.RoleID.String())
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("herald: list assignments: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountAssignments(ctx context.Context, filter *assignment.ListFilter) (int64, error) {
	q := s.sdb.NewSelect((*assignmentModel)(nil))
	if filter != nil {
		if filter.InstanceID != "" {
			q = q.Where("instance_id = ?", filter.InstanceID)
		}
		if filter.RoleID != nil {
			q = q.Where("role_id = ?", filter.RoleID.String())
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("herald: count assignments: %w", err)
	}
	return count, nil
}

func (s *Store) DeleteAssignmentsByRole(ctx context.Context, roleID id.RoleID) error {
	_, err := s.sdb.NewDelete((*assignmentModel)(nil)).
		Where("role_id = ?", roleID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("herald: delete assignments by role: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Moderation log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateModLog(ctx context.Context, e *modlog.Entry) error {
	m, err := modLogToModel(e)
	if err != nil {
		return fmt.Errorf("herald: create modlog: %w", err)
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("herald: create modlog: %w", err)
	}
	return nil
}

func (s *Store) ListModLogs(ctx context.Context, filter *modlog.QueryFilter) ([]*modlog.Entry, error) {
	var models []modLogModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at DESC, id DESC")
	if filter != nil {
		if filter.ModeratorID != "" {
			q = q.Where("moderator_id = ?", filter.ModeratorID)
		}
		if filter.Type != "" {
			q = q.Where("type = ?", string(filter.Type))
		}
		if filter.After != nil {
			q = q.Where("created_at > ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at < ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("herald: list modlogs: %w", err)
	}
	result := make([]*modlog.Entry, len(models))
	for i := range models {
		e, err := modLogFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("herald: list modlogs: %w", err)
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) CountModLogs(ctx context.Context, filter *modlog.QueryFilter) (int64, error) {
	q := s.sdb.NewSelect((*modLogModel)(nil))
	if filter != nil {
		if filter.ModeratorID != "" {
			q = q.Where("moderator_id = ?", filter.ModeratorID)
		}
		if filter.Type != "" {
			q = q.Where("type = ?", string(filter.Type))
		}
		if filter.After != nil {
			q = q.Where("created_at > ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at < ?", *filter.Before)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("herald: count modlogs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeModLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*modLogModel)(nil)).
		Where("created_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("herald: purge modlogs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("herald: purge modlogs rows: %w", err)
	}
	return n, nil
}
