package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/herald/condition"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
)

func TestRoleModelConversion(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &role.Role{
		ID:     id.NewRoleID(),
		Name:   "established",
		Target: role.TargetConditional,
		CondFormula: condition.And(
			condition.CreatedMoreThan(30*86400),
			condition.Not(condition.FollowersLessThanOrEq(10)),
			condition.Or(),
		),
		DisplayOrder: 3,
		Policies: map[policy.Name]policy.Override{
			policy.NoteRateLimit:   {Value: 500, Priority: 2},
			policy.FollowRateLimit: {UseDefault: true},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	got := roleFromModel(roleToModel(r))
	assert.Equal(t, r, got)
}

func TestEmptyFormulaIsOmitted(t *testing.T) {
	r := &role.Role{ID: id.NewRoleID(), Target: role.TargetManual}
	m := roleToModel(r)
	assert.Nil(t, m.CondFormula)
	assert.Nil(t, m.Policies)
	assert.True(t, roleFromModel(m).CondFormula.IsZero())
}
