// Package memory provides an in-memory implementation of the Herald composite
// store. It is intended for testing, development and single-node setups that
// do not need durable roles.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/modlog"
	"github.com/xraph/herald/role"
)

// Compile-time interface checks.
var (
	_ role.Store       = (*Store)(nil)
	_ assignment.Store = (*Store)(nil)
	_ modlog.Store     = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all Herald entities.
type Store struct {
	mu sync.RWMutex

	roles       map[string]*role.Role
	assignments map[string]*assignment.Assignment
	pairs       map[pairKey]string // (instance, role) -> assignment ID
	modLogs     map[string]*modlog.Entry
}

type pairKey struct {
	instanceID string
	roleID     string
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		roles:       make(map[string]*role.Role),
		assignments: make(map[string]*assignment.Assignment),
		pairs:       make(map[pairKey]string),
		modLogs:     make(map[string]*modlog.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[r.ID.String()] = r.Clone()
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, role.ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[r.ID.String()]; !ok {
		return fmt.Errorf("role %s: %w", r.ID, role.ErrNotFound)
	}
	s.roles[r.ID.String()] = r.Clone()
	return nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[roleID.String()]; !ok {
		return fmt.Errorf("role %s: %w", roleID, role.ErrNotFound)
	}
	delete(s.roles, roleID.String())
	s.deleteAssignmentsByRoleLocked(roleID)
	return nil
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if !matchRole(r, filter) {
			continue
		}
		result = append(result, r.Clone())
	}
	slices.SortFunc(result, func(a, b *role.Role) int {
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder - b.DisplayOrder
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	if filter != nil {
		result = paginate(result, filter.Limit, filter.Offset)
	}
	return result, nil
}

func (s *Store) CountRoles(_ context.Context, filter *role.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, r := range s.roles {
		if matchRole(r, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) TouchRole(_ context.Context, roleID id.RoleID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return fmt.Errorf("role %s: %w", roleID, role.ErrNotFound)
	}
	r.LastUsedAt = &at
	return nil
}

func matchRole(r *role.Role, f *role.ListFilter) bool {
	if f == nil {
		return true
	}
	if f.Target != "" && r.Target != f.Target {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// ──────────────────────────────────────────────────
// Assignment Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(_ context.Context, a *assignment.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{a.InstanceID, a.RoleID.String()}
	if _, exists := s.pairs[key]; exists {
		return fmt.Errorf("instance %s role %s: %w", a.InstanceID, a.RoleID, assignment.ErrConflict)
	}
	s.assignments[a.ID.String()] = copyAssignment(a)
	s.pairs[key] = a.ID.String()
	return nil
}

func (s *Store) GetAssignment(_ context.Context, assID id.AssignmentID) (*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assID.String()]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", assID, assignment.ErrNotFound)
	}
	return copyAssignment(a), nil
}

func (s *Store) FindAssignment(_ context.Context, instanceID string, roleID id.RoleID) (*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assID, ok := s.pairs[pairKey{instanceID, roleID.String()}]
	if !ok {
		return nil, fmt.Errorf("instance %s role %s: %w", instanceID, roleID, assignment.ErrNotFound)
	}
	return copyAssignment(s.assignments[assID]), nil
}

func (s *Store) DeleteAssignment(_ context.Context, assID id.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[assID.String()]
	if !ok {
		return fmt.Errorf("assignment %s: %w", assID, assignment.ErrNotFound)
	}
	delete(s.pairs, pairKey{a.InstanceID, a.RoleID.String()})
	delete(s.assignments, assID.String())
	return nil
}

func (s *Store) ListAssignments(_ context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*assignment.Assignment, 0)
	for _, a := range s.assignments {
		if matchAssignment(a, filter) {
			result = append(result, copyAssignment(a))
		}
	}
	slices.SortFunc(result, func(a, b *assignment.Assignment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	if filter != nil {
		result = paginate(result, filter.Limit, filter.Offset)
	}
	return result, nil
}

func (s *Store) CountAssignments(_ context.Context, filter *assignment.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, a := range s.assignments {
		if matchAssignment(a, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteAssignmentsByRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteAssignmentsByRoleLocked(roleID)
	return nil
}

func (s *Store) deleteAssignmentsByRoleLocked(roleID id.RoleID) {
	for k, a := range s.assignments {
		if a.RoleID == roleID {
			delete(s.pairs, pairKey{a.InstanceID, a.RoleID.String()})
			delete(s.assignments, k)
		}
	}
}

func matchAssignment(a *assignment.Assignment, f *assignment.ListFilter) bool {
	if f == nil {
		return true
	}
	if f.InstanceID != "" && a.InstanceID != f.InstanceID {
		return false
	}
	if f.RoleID != nil && a.RoleID != *f.RoleID {
		return false
	}
	return true
}

// ──────────────────────────────────────────────────
// Moderation log Store
// ──────────────────────────────────────────────────

func (s *Store) CreateModLog(_ context.Context, e *modlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modLogs[e.ID.String()] = copyModLog(e)
	return nil
}

func (s *Store) ListModLogs(_ context.Context, filter *modlog.QueryFilter) ([]*modlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*modlog.Entry, 0)
	for _, e := range s.modLogs {
		if matchModLog(e, filter) {
			result = append(result, copyModLog(e))
		}
	}
	slices.SortFunc(result, func(a, b *modlog.Entry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID.String(), a.ID.String())
	})
	if filter != nil {
		result = paginate(result, filter.Limit, filter.Offset)
	}
	return result, nil
}

func (s *Store) CountModLogs(_ context.Context, filter *modlog.QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.modLogs {
		if matchModLog(e, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) PurgeModLogs(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, e := range s.modLogs {
		if e.CreatedAt.Before(before) {
			delete(s.modLogs, k)
			n++
		}
	}
	return n, nil
}

func matchModLog(e *modlog.Entry, f *modlog.QueryFilter) bool {
	if f == nil {
		return true
	}
	if f.ModeratorID != "" && e.ModeratorID != f.ModeratorID {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.After != nil && !e.CreatedAt.After(*f.After) {
		return false
	}
	if f.Before != nil && !e.CreatedAt.Before(*f.Before) {
		return false
	}
	return true
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyAssignment(a *assignment.Assignment) *assignment.Assignment {
	c := *a
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

func copyModLog(e *modlog.Entry) *modlog.Entry {
	c := *e
	c.Info = maps.Clone(e.Info)
	return &c
}

func paginate[T any](items []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(items) {
			return []*T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
