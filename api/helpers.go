package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/herald"
	"github.com/xraph/herald/id"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, herald.ErrAlreadyAssigned) || errors.Is(err, herald.ErrConditionalRole) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, herald.ErrInvalidRole) ||
		errors.Is(err, herald.ErrInvalidCondition) ||
		errors.Is(err, herald.ErrInvalidPolicy) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, herald.ErrAccessDenied) {
		return forge.Forbidden(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, herald.ErrRoleNotFound) ||
		errors.Is(err, herald.ErrNotAssigned) ||
		errors.Is(err, herald.ErrInstanceNotFound)
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func roleIDParam(ctx forge.Context) (id.RoleID, error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return id.Nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}
	return roleID, nil
}

// parseTime parses an optional RFC 3339 timestamp.
func parseTime(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil //nolint:nilnil // absent is not an error
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return &t, nil
}

func moderator(ctx forge.Context) *herald.Moderator {
	return herald.ModeratorFromContext(ctx.Context())
}

// checkInstance fails with ErrInstanceNotFound when a provider is configured
// and does not know the instance.
func (a *API) checkInstance(ctx context.Context, instanceID string) error {
	p := a.eng.Instances()
	if p == nil {
		return nil
	}
	_, err := p.GetInstance(ctx, instanceID)
	return err
}
