// Package mongo provides a MongoDB implementation of the Herald composite
// store using grove's mongo driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/modlog"
	"github.com/xraph/herald/role"
	"github.com/xraph/herald/store"
)

// Collection name constants.
const (
	colRoles       = "herald_instance_roles"
	colAssignments = "herald_instance_role_assignments"
	colModLogs     = "herald_moderation_logs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a MongoDB implementation of the composite Herald store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all herald collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("herald/mongo: migrate %s indexes: %w", col, err)
		}
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all herald collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colRoles: {
			{Keys: bson.D{{Key: "display_order", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "target", Value: 1}}},
		},
		colAssignments: {
			{
				Keys:    bson.D{{Key: "instance_id", Value: 1}, {Key: "role_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "role_id", Value: 1}}},
		},
		colModLogs: {
			{Keys: bson.D{{Key: "moderator_id", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	if _, err := s.mdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		return fmt.Errorf("herald: create role: %w", err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": roleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("role %s: %w", roleID, role.ErrNotFound)
		}
		return nil, fmt.Errorf("herald: get role: %w", err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	m := roleToModel(r)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("herald: update role: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("role %s: %w", r.ID, role.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	if err := s.DeleteAssignmentsByRole(ctx, roleID); err != nil {
		return err
	}
	res, err := s.mdb.NewDelete((*roleModel)(nil)).
		Filter(bson.M{"_id": roleID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("herald: delete role: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("role %s: %w", roleID, role.ErrNotFound)
	}
	return nil
}

func roleFilter(filter *role.ListFilter) bson.M {
	f := bson.M{}
	if filter != nil {
		if filter.Target != "" {
			f["target"] = string(filter.Target)
		}
		if filter.Search != "" {
			f["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
		}
	}
	return f
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.mdb.NewFind(&models).
		Filter(roleFilter(filter)).
		Sort(bson.D{{Key: "display_order", Value: 1}, {Key: "_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("herald: list roles: %w", err)
	}
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	count, err := s.mdb.NewFind((*roleModel)(nil)).
		Filter(roleFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("herald: count roles: %w", err)
	}
	return count, nil
}

func (s *Store) TouchRole(ctx context.Context, roleID id.RoleID, at time.Time) error {
	var m roleModel
	if err := s.mdb.NewFind(&m).Filter(bson.M{"_id": roleID.String()}).Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return fmt.Errorf("role %s: %w", roleID, role.ErrNotFound)
		}
		return fmt.Errorf("herald: touch role: %w", err)
	}
	m.LastUsedAt = &at
	if _, err := s.mdb.NewUpdate(&m).Filter(bson.M{"_id": m.ID}).Exec(ctx); err != nil {
		return fmt.Errorf("herald: touch role: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Assignment operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(ctx context.Context, a *assignment.Assignment) error {
	if _, err := s.mdb.NewInsert(assignmentToModel(a)).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return fmt.Errorf("instance %s role %s: %w", a.InstanceID, a.RoleID, assignment.ErrConflict)
		}
		return fmt.Errorf("herald: create assignment: %w", err)
	}
	return nil
}

func (s *Store) GetAssignment(ctx context.Context, assID id.AssignmentID) (*assignment.Assignment, error) {
	var m assignmentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": assID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("assignment %s: %w", assID, assignment.ErrNotFound)
		}
		return nil, fmt.Errorf("herald: get assignment: %w", err)
	}
	return assignmentFromModel(&m), nil
}

func (s *Store) FindAssignment(ctx context.Context, instanceID string, roleID id.RoleID) (*assignment.Assignment, error) {
	var m assignmentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"instance_id": instanceID, "role_id": roleID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("instance %s role %s: %w", instanceID, roleID, assignment.ErrNotFound)
		}
		return nil, fmt.Errorf("herald: find assignment: %w", err)
	}
	return assignmentFromModel(&m), nil
}

func (s *Store) DeleteAssignment(ctx context.Context, assID id.AssignmentID) error {
	res, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Filter(bson.M{"_id": assID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("herald: delete assignment: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("assignment %s: %w", assID, assignment.ErrNotFound)
	}
	return nil
}

func assignmentFilter(filter *assignment.ListFilter) bson.M {
	f := bson.M{}
	if filter != nil {
		if filter.InstanceID != "" {
			f["instance_id"] = filter.InstanceID
		}
		if filter.RoleID != nil {
			f["role_id"] = filter.RoleID.String()
		}
	}
	return f
}

func (s *Store) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	q := s.mdb.NewFind(&models).
		Filter(assignmentFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
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
	count, err := s.mdb.NewFind((*assignmentModel)(nil)).
		Filter(assignmentFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("herald: count assignments: %w", err)
	}
	return count, nil
}

func (s *Store) DeleteAssignmentsByRole(ctx context.Context, roleID id.RoleID) error {
	_, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Many().
		Filter(bson.M{"role_id": roleID.String()}).
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
	if _, err := s.mdb.NewInsert(modLogToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("herald: create modlog: %w", err)
	}
	return nil
}

func modLogFilter(filter *modlog.QueryFilter) bson.M {
	f := bson.M{}
	if filter != nil {
		if filter.ModeratorID != "" {
			f["moderator_id"] = filter.ModeratorID
		}
		if filter.Type != "" {
			f["type"] = string(filter.Type)
		}
		if filter.After != nil || filter.Before != nil {
			dateFilter := bson.M{}
			if filter.After != nil {
				dateFilter["$gt"] = *filter.After
			}
			if filter.Before != nil {
				dateFilter["$lt"] = *filter.Before
			}
			f["created_at"] = dateFilter
		}
	}
	return f
}

func (s *Store) ListModLogs(ctx context.Context, filter *modlog.QueryFilter) ([]*modlog.Entry, error) {
	var models []modLogModel
	q := s.mdb.NewFind(&models).
		Filter(modLogFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("herald: list modlogs: %w", err)
	}
	result := make([]*modlog.Entry, len(models))
	for i := range models {
		result[i] = modLogFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountModLogs(ctx context.Context, filter *modlog.QueryFilter) (int64, error) {
	count, err := s.mdb.NewFind((*modLogModel)(nil)).
		Filter(modLogFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("herald: count modlogs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeModLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*modLogModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("herald: purge modlogs: %w", err)
	}
	return res.DeletedCount(), nil
}
