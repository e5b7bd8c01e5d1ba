package api

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/herald/condition"
	"github.com/xraph/herald/modlog"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
)

func TestDefaultLimit(t *testing.T) {
	assert.Equal(t, 50, defaultLimit(0))
	assert.Equal(t, 50, defaultLimit(-3))
	assert.Equal(t, 20, defaultLimit(20))
	assert.Equal(t, 1000, defaultLimit(5000))
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("expires_at", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseTime("expires_at", "2026-05-01T10:00:00Z")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)))

	_, err = parseTime("expires_at", "tomorrow")
	assert.ErrorContains(t, err, "invalid expires_at")
}

func TestMapErrorPassesThroughUnknown(t *testing.T) {
	assert.NoError(t, mapError(nil))

	boom := errors.New("disk on fire")
	assert.Same(t, boom, mapError(boom))
}

func TestCreateRoleRequestToRole(t *testing.T) {
	formula := condition.FollowersMoreThanOrEq(1000)
	req := &CreateRoleRequest{
		Name:         "popular",
		Target:       "conditional",
		CondFormula:  &formula,
		DisplayOrder: 4,
		Policies: map[policy.Name]policy.Override{
			policy.NoteRateLimit: {Value: 5, Priority: 2},
		},
	}

	r := req.toRole()
	assert.Equal(t, "popular", r.Name)
	assert.Equal(t, role.TargetConditional, r.Target)
	assert.Equal(t, condition.KindFollowersMoreThanOrEq, r.CondFormula.Kind)
	assert.Equal(t, 4, r.DisplayOrder)
	assert.Equal(t, policy.Value(5), r.Policies[policy.NoteRateLimit].Value)
}

func TestUpdateRoleRequestApply(t *testing.T) {
	r := &role.Role{Name: "old", Description: "keep", DisplayOrder: 1}
	name := "new"
	order := 7
	allow := true

	(&UpdateRoleRequest{
		Name:                      &name,
		DisplayOrder:              &order,
		CanEditMembersByModerator: &allow,
	}).apply(r)

	assert.Equal(t, "new", r.Name)
	assert.Equal(t, "keep", r.Description)
	assert.Equal(t, 7, r.DisplayOrder)
	assert.True(t, r.CanEditMembersByModerator)
	assert.Nil(t, r.Policies)
}

func TestListModLogsRequestFilter(t *testing.T) {
	req := &ListModLogsRequest{
		ModeratorID: "mod-1",
		Type:        string(modlog.TypeAssignInstanceRole),
		After:       "2026-01-01T00:00:00Z",
	}
	f, err := req.filter()
	require.NoError(t, err)
	assert.Equal(t, "mod-1", f.ModeratorID)
	assert.Equal(t, modlog.TypeAssignInstanceRole, f.Type)
	assert.Equal(t, 50, f.Limit)
	require.NotNil(t, f.After)
	assert.Nil(t, f.Before)

	req.Before = "yesterday"
	_, err = req.filter()
	assert.Error(t, err)
}
