package herald

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/condition"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/instance"
	"github.com/xraph/herald/modlog"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
	"github.com/xraph/herald/store/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	eng       *Engine
	store     *memory.Store
	instances *instance.Memory
	clock     *testClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.New(),
		instances: instance.NewMemory(),
		clock:     &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	cfg := DefaultConfig()
	cfg.CacheJanitorInterval = 0
	base := []Option{
		WithStore(f.store),
		WithInstanceProvider(f.instances),
		WithClock(f.clock.Now),
		WithConfig(cfg),
	}
	eng, err := NewEngine(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Dispose() })
	f.eng = eng
	return f
}

func (f *fixture) role(t *testing.T, name string, overrides map[policy.Name]policy.Override) *role.Role {
	t.Helper()
	r, err := f.eng.CreateRole(context.Background(), &role.Role{
		Name:     name,
		Target:   role.TargetManual,
		Policies: overrides,
	}, nil)
	require.NoError(t, err)
	return r
}

func note(v policy.Value, priority int) map[policy.Name]policy.Override {
	return map[policy.Name]policy.Override{
		policy.NoteRateLimit: {Value: v, Priority: priority},
	}
}

func TestNewEngineRequiresStore(t *testing.T) {
	_, err := NewEngine()
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestResolveWithoutInstanceReturnsBase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheJanitorInterval = 0
	cfg.DefaultPolicies = map[string]int64{"noteRateLimit": 100, "unknownPolicy": 7}
	f := newFixture(t, WithConfig(cfg))
	ctx := context.Background()

	f.role(t, "limited", note(5, 2))

	set, err := f.eng.ResolvePolicies(ctx, "")
	require.NoError(t, err)
	base, err := f.eng.BasePolicies(ctx)
	require.NoError(t, err)

	assert.Equal(t, base, set)
	assert.Equal(t, policy.Value(100), set[policy.NoteRateLimit])
	assert.Equal(t, policy.Unlimited, set[policy.FollowRateLimit])
	assert.NotContains(t, set, policy.Name("unknownPolicy"))
}

func TestResolveWithoutRolesReturnsBase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	set, err := f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, policy.Baseline(), set)
}

func TestResolveHighestTierWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	low := f.role(t, "low", note(1000, 1))
	a := f.role(t, "a", note(10, 2))
	b := f.role(t, "b", note(20, 2))
	for _, r := range []*role.Role{low, a, b} {
		_, err := f.eng.Assign(ctx, "inst-1", r.ID, nil, nil)
		require.NoError(t, err)
	}

	set, err := f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, policy.Value(20), set[policy.NoteRateLimit])
	assert.Equal(t, policy.Unlimited, set[policy.FollowRateLimit])
}

func TestResolveUseDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheJanitorInterval = 0
	cfg.DefaultPolicies = map[string]int64{"noteRateLimit": 50}
	f := newFixture(t, WithConfig(cfg))
	ctx := context.Background()

	strict := f.role(t, "strict", note(5, 2))
	dflt := f.role(t, "default", map[policy.Name]policy.Override{
		policy.NoteRateLimit: {UseDefault: true, Priority: 2},
	})
	for _, r := range []*role.Role{strict, dflt} {
		_, err := f.eng.Assign(ctx, "inst-1", r.ID, nil, nil)
		require.NoError(t, err)
	}

	set, err := f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, policy.Value(50), set[policy.NoteRateLimit])
}

func TestConditionalRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.instances.Put(&instance.Instance{ID: "big", Host: "big.example", FollowersCount: 1500})
	f.instances.Put(&instance.Instance{ID: "small", Host: "small.example", FollowersCount: 10})

	r, err := f.eng.CreateRole(ctx, &role.Role{
		Name:        "popular",
		Target:      role.TargetConditional,
		CondFormula: condition.FollowersMoreThanOrEq(1000),
		Policies:    note(5, 2),
	}, nil)
	require.NoError(t, err)

	big, err := f.eng.ResolvePolicies(ctx, "big")
	require.NoError(t, err)
	small, err := f.eng.ResolvePolicies(ctx, "small")
	require.NoError(t, err)
	unknown, err := f.eng.ResolvePolicies(ctx, "unknown")
	require.NoError(t, err)

	assert.Equal(t, policy.Value(5), big[policy.NoteRateLimit])
	assert.Equal(t, policy.Unlimited, small[policy.NoteRateLimit])
	assert.Equal(t, policy.Unlimited, unknown[policy.NoteRateLimit])

	roles, err := f.eng.ApplicableRoles(ctx, "big")
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, r.ID, roles[0].ID)

	_, err = f.eng.Assign(ctx, "small", r.ID, nil, nil)
	assert.ErrorIs(t, err, ErrConditionalRole)
}

func TestApplicableRolesOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []id.RoleID
	for i, order := range []int{3, 1, 2} {
		r, err := f.eng.CreateRole(ctx, &role.Role{
			Name:         string(rune('a' + i)),
			DisplayOrder: order,
		}, nil)
		require.NoError(t, err)
		_, err = f.eng.Assign(ctx, "inst-1", r.ID, nil, nil)
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	roles, err := f.eng.ApplicableRoles(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, []id.RoleID{ids[1], ids[2], ids[0]}, []id.RoleID{roles[0].ID, roles[1].ID, roles[2].ID})
}

func TestAssignTwiceConflictsUntilExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "r", note(5, 0))

	exp := f.clock.Now().Add(time.Hour)
	_, err := f.eng.Assign(ctx, "inst-1", r.ID, &exp, nil)
	require.NoError(t, err)

	_, err = f.eng.Assign(ctx, "inst-1", r.ID, nil, nil)
	require.ErrorIs(t, err, ErrAlreadyAssigned)

	f.clock.Advance(time.Hour)

	a, err := f.eng.Assign(ctx, "inst-1", r.ID, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, a.ExpiresAt)

	n, err := f.store.CountAssignments(ctx, &assignment.ListFilter{InstanceID: "inst-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.eng.GetRole(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.True(t, got.LastUsedAt.Equal(f.clock.Now()))
}

func TestAssignUnknownRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Assign(context.Background(), "inst-1", id.NewRoleID(), nil, nil)
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestUnassignExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "r", note(5, 0))

	exp := f.clock.Now().Add(time.Minute)
	_, err := f.eng.Assign(ctx, "inst-1", r.ID, &exp, nil)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)

	err = f.eng.Unassign(ctx, "inst-1", r.ID, nil)
	require.ErrorIs(t, err, ErrNotAssigned)

	_, err = f.store.FindAssignment(ctx, "inst-1", r.ID)
	assert.ErrorIs(t, err, assignment.ErrNotFound)

	err = f.eng.Unassign(ctx, "inst-1", r.ID, nil)
	assert.ErrorIs(t, err, ErrNotAssigned)
}

func TestUnassignExpiredChecksAccessFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	locked := f.role(t, "locked", note(5, 0))

	exp := f.clock.Now().Add(time.Minute)
	_, err := f.eng.Assign(ctx, "inst-1", locked.ID, &exp, nil)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	err = f.eng.Unassign(ctx, "inst-1", locked.ID, &Moderator{ID: "mod-1"})
	require.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.store.FindAssignment(ctx, "inst-1", locked.ID)
	require.NoError(t, err, "a denied moderator must not remove the stale row")
}

func TestAssignPastExpiryDoesNotApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "r", note(5, 2))

	past := f.clock.Now().Add(-time.Second)
	_, err := f.eng.Assign(ctx, "inst-1", r.ID, &past, nil)
	require.NoError(t, err)

	set, err := f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, policy.Unlimited, set[policy.NoteRateLimit])

	live, err := f.eng.InstanceAssignments(ctx, "inst-1")
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestResolutionFollowsAssignmentsAndExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "r", note(5, 2))

	set, err := f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, policy.Unlimited, set[policy.NoteRateLimit])

	exp := f.clock.Now().Add(time.Minute)
	_, err = f.eng.Assign(ctx, "inst-1", r.ID, &exp, nil)
	require.NoError(t, err)

	set, err = f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, policy.Value(5), set[policy.NoteRateLimit])

	// Cached rows are filtered with the current time on every read.
	f.clock.Advance(time.Minute)
	set, err = f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, policy.Unlimited, set[policy.NoteRateLimit])
}

func TestUnassignRestoresBase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "r", note(5, 2))

	_, err := f.eng.Assign(ctx, "inst-1", r.ID, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.eng.Unassign(ctx, "inst-1", r.ID, nil))

	set, err := f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, policy.Unlimited, set[policy.NoteRateLimit])
}

func TestUpdateAndDeleteRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.role(t, "r", note(5, 2))

	_, err := f.eng.Assign(ctx, "inst-1", r.ID, nil, nil)
	require.NoError(t, err)
	_, err = f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)

	r.Policies = note(9, 2)
	updated, err := f.eng.UpdateRole(ctx, r, nil)
	require.NoError(t, err)
	assert.True(t, updated.CreatedAt.Equal(r.CreatedAt))

	set, err := f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, policy.Value(9), set[policy.NoteRateLimit])

	n, err := f.eng.CountInstances(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, f.eng.DeleteRole(ctx, r.ID, nil))

	set, err = f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, policy.Unlimited, set[policy.NoteRateLimit])

	n, err = f.eng.CountInstances(ctx, r.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, f.eng.DeleteRole(ctx, r.ID, nil), ErrRoleNotFound)
}

func TestCreateRoleValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.CreateRole(ctx, &role.Role{}, nil)
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = f.eng.CreateRole(ctx, &role.Role{Name: "x", Target: "sometimes"}, nil)
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = f.eng.CreateRole(ctx, &role.Role{Name: "x", Target: role.TargetConditional}, nil)
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = f.eng.CreateRole(ctx, &role.Role{Name: "x", Policies: note(1, 3)}, nil)
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	r, err := f.eng.CreateRole(ctx, &role.Role{Name: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, role.TargetManual, r.Target)
}

func TestModeratorAccessAndModLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.instances.Put(&instance.Instance{ID: "inst-1", Host: "one.example"})

	locked := f.role(t, "locked", note(5, 2))
	open, err := f.eng.CreateRole(ctx, &role.Role{Name: "open", CanEditMembersByModerator: true}, nil)
	require.NoError(t, err)

	mod := &Moderator{ID: "mod-1"}
	_, err = f.eng.Assign(ctx, "inst-1", locked.ID, nil, mod)
	require.ErrorIs(t, err, ErrAccessDenied)

	exp := f.clock.Now().Add(time.Hour)
	_, err = f.eng.Assign(ctx, "inst-1", open.ID, &exp, mod)
	require.NoError(t, err)

	admin := &Moderator{ID: "admin-1", IsAdmin: true}
	_, err = f.eng.Assign(ctx, "inst-1", locked.ID, nil, admin)
	require.NoError(t, err)
	require.ErrorIs(t, f.eng.Unassign(ctx, "inst-1", locked.ID, mod), ErrAccessDenied)

	logs, total, err := f.eng.ListModLogs(ctx, &modlog.QueryFilter{ModeratorID: "mod-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, modlog.TypeAssignInstanceRole, logs[0].Type)
	assert.Equal(t, "one.example", logs[0].Info["instanceHostname"])
	assert.Equal(t, open.Name, logs[0].Info["roleName"])
	assert.Equal(t, exp.Format(time.RFC3339Nano), logs[0].Info["expiresAt"])

	require.NoError(t, f.eng.Unassign(ctx, "inst-1", locked.ID, admin))
	logs, _, err = f.eng.ListModLogs(ctx, &modlog.QueryFilter{Type: modlog.TypeUnassignInstanceRole})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].Info["expiresAt"])
}

func TestModeratorContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ModeratorFromContext(ctx))

	m := &Moderator{ID: "mod-1"}
	assert.Same(t, m, ModeratorFromContext(WithModerator(ctx, m)))
}

type recordingPlugin struct {
	assigned atomic.Int32
	resolved atomic.Int32
	shutdown atomic.Int32
}

func (p *recordingPlugin) Name() string { return "recording" }

func (p *recordingPlugin) OnRoleAssigned(context.Context, *assignment.Assignment) error {
	p.assigned.Add(1)
	return errors.New("ignored")
}

func (p *recordingPlugin) OnPoliciesResolved(context.Context, string, policy.Set, time.Duration, error) error {
	p.resolved.Add(1)
	return nil
}

func (p *recordingPlugin) OnShutdown(context.Context) error {
	p.shutdown.Add(1)
	return nil
}

func TestPluginsAndStop(t *testing.T) {
	p := &recordingPlugin{}
	f := newFixture(t, WithPlugin(p))
	ctx := context.Background()
	r := f.role(t, "r", nil)

	_, err := f.eng.Assign(ctx, "inst-1", r.ID, nil, nil)
	require.NoError(t, err)
	_, err = f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)

	require.NoError(t, f.eng.Stop(ctx))
	require.NoError(t, f.eng.Stop(ctx))

	assert.Equal(t, int32(1), p.assigned.Load())
	assert.Equal(t, int32(1), p.resolved.Load())
	assert.Equal(t, int32(1), p.shutdown.Load())
}

type countingStore struct {
	*memory.Store
	listRoles atomic.Int32
}

func (s *countingStore) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.listRoles.Add(1)
	return s.Store.ListRoles(ctx, filter)
}

func TestRoleCacheAndInvalidation(t *testing.T) {
	s := &countingStore{Store: memory.New()}
	f := newFixture(t, WithStore(s))
	ctx := context.Background()
	r := f.role(t, "r", note(5, 2))
	_, err := f.eng.Assign(ctx, "inst-1", r.ID, nil, nil)
	require.NoError(t, err)

	for range 5 {
		_, err := f.eng.ResolvePolicies(ctx, "inst-1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), s.listRoles.Load())

	f.eng.InvalidateRoles()
	_, err = f.eng.ResolvePolicies(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), s.listRoles.Load())
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("HERALD_ROLE_CACHE_TTL", "5m")
	t.Setenv("HERALD_DEFAULT_POLICIES", "noteRateLimit:100,followRateLimit:20")

	cfg, err := LoadConfig("herald")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.RoleCacheTTL)
	assert.Equal(t, time.Hour, cfg.AssignmentCacheTTL)
	assert.Equal(t, map[string]int64{"noteRateLimit": 100, "followRateLimit": 20}, cfg.DefaultPolicies)
}
