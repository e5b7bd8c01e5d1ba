package herald

import (
	"errors"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/condition"
	"github.com/xraph/herald/instance"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
)

var (
	// ErrRoleNotFound is returned when a role cannot be found.
	ErrRoleNotFound = role.ErrNotFound

	// ErrAlreadyAssigned is returned when the role is already live on the instance.
	ErrAlreadyAssigned = assignment.ErrConflict

	// ErrNotAssigned is returned when unassigning a role the instance does not hold.
	ErrNotAssigned = assignment.ErrNotFound

	// ErrConditionalRole is returned when assigning a role that is matched by condition.
	ErrConditionalRole = errors.New("herald: conditional roles cannot be assigned")

	// ErrInvalidRole is returned when a role definition is malformed.
	ErrInvalidRole = errors.New("herald: invalid role")

	// ErrInvalidCondition is returned when a condition tree is malformed.
	ErrInvalidCondition = condition.ErrInvalid

	// ErrInvalidPolicy is returned when a policy override is malformed.
	ErrInvalidPolicy = policy.ErrInvalid

	// ErrInstanceNotFound is returned when the instance provider has no such instance.
	ErrInstanceNotFound = instance.ErrNotFound

	// ErrAccessDenied is returned when a moderator may not edit a role's members.
	ErrAccessDenied = errors.New("herald: access denied")

	// ErrNoStore is returned by NewEngine without a store.
	ErrNoStore = errors.New("herald: store is required")
)
