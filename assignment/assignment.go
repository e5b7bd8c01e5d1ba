// Package assignment defines the Assignment entity, an (instance, role)
// edge with an optional expiry.
package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/herald/id"
)

var (
	// ErrNotFound is returned by stores for a missing assignment.
	ErrNotFound = errors.New("herald: assignment not found")

	// ErrConflict is returned by CreateAssignment when the (instance, role)
	// pair already has a row.
	ErrConflict = errors.New("herald: role already assigned to instance")
)

// Assignment binds a manual role to an instance.
type Assignment struct {
	ID         id.AssignmentID `json:"id" db:"id"`
	InstanceID string          `json:"instance_id" db:"instance_id"`
	RoleID     id.RoleID       `json:"role_id" db:"role_id"`
	ExpiresAt  *time.Time      `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Expired reports whether the assignment is stale at now.
func (a *Assignment) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// Live returns the assignments in as that are not expired at now.
// The input slice is not modified.
func Live(as []*Assignment, now time.Time) []*Assignment {
	out := make([]*Assignment, 0, len(as))
	for _, a := range as {
		if !a.Expired(now) {
			out = append(out, a)
		}
	}
	return out
}

// ListFilter contains filters for listing assignments.
type ListFilter struct {
	InstanceID string     `json:"instance_id,omitempty"`
	RoleID     *id.RoleID `json:"role_id,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

// Store defines persistence operations for assignments. Implementations
// enforce uniqueness of (InstanceID, RoleID).
type Store interface {
	// CreateAssignment persists a new assignment. It returns ErrConflict
	// when the pair already exists.
	CreateAssignment(ctx context.Context, a *Assignment) error

	// GetAssignment retrieves an assignment by ID.
	GetAssignment(ctx context.Context, assID id.AssignmentID) (*Assignment, error)

	// FindAssignment retrieves the row for an (instance, role) pair,
	// expired or not.
	FindAssignment(ctx context.Context, instanceID string, roleID id.RoleID) (*Assignment, error)

	// DeleteAssignment removes an assignment by ID.
	DeleteAssignment(ctx context.Context, assID id.AssignmentID) error

	// ListAssignments returns assignments matching the filter, including
	// expired rows.
	ListAssignments(ctx context.Context, filter *ListFilter) ([]*Assignment, error)

	// CountAssignments returns the number of assignments matching the filter.
	CountAssignments(ctx context.Context, filter *ListFilter) (int64, error)

	// DeleteAssignmentsByRole removes all assignments for a role.
	DeleteAssignmentsByRole(ctx context.Context, roleID id.RoleID) error
}
