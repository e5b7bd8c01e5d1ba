package plugin

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/id"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
)

// testPlugin implements Plugin + RoleCreated + PoliciesResolved.
type testPlugin struct {
	roleCreatedCalled bool
	resolvedInstance  string
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnRoleCreated(_ context.Context, _ *role.Role) error {
	t.roleCreatedCalled = true
	return nil
}

func (t *testPlugin) OnPoliciesResolved(_ context.Context, instanceID string, _ policy.Set, _ time.Duration, _ error) error {
	t.resolvedInstance = instanceID
	return nil
}

// failingPlugin returns an error from every hook it implements.
type failingPlugin struct{ calls int }

func (f *failingPlugin) Name() string { return "failing" }

func (f *failingPlugin) OnRoleAssigned(_ context.Context, _ *assignment.Assignment) error {
	f.calls++
	return errors.New("sink unavailable")
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	// Should dispatch RoleCreated to testPlugin only.
	reg.EmitRoleCreated(ctx, &role.Role{ID: id.NewRoleID(), Name: "trusted"})
	if !tp.roleCreatedCalled {
		t.Fatal("OnRoleCreated was not called")
	}

	reg.EmitPoliciesResolved(ctx, "inst-1", policy.Set{}, time.Millisecond, nil)
	if tp.resolvedInstance != "inst-1" {
		t.Fatalf("OnPoliciesResolved got instance %q", tp.resolvedInstance)
	}

	// Should not panic on hooks with no listeners.
	reg.EmitRoleDeleted(ctx, id.NewRoleID())
	reg.EmitRoleUnassigned(ctx, &assignment.Assignment{})
	reg.EmitModLogWritten(ctx, nil)
	reg.EmitShutdown(ctx)
}

func TestRegistryHookErrorsAreSwallowed(t *testing.T) {
	reg := NewRegistry(nil)
	fp := &failingPlugin{}
	reg.Register(fp)

	reg.EmitRoleAssigned(context.Background(), &assignment.Assignment{ID: id.NewAssignmentID()})
	reg.EmitRoleAssigned(context.Background(), &assignment.Assignment{ID: id.NewAssignmentID()})

	if fp.calls != 2 {
		t.Fatalf("expected hook to be called twice, got %d", fp.calls)
	}
}
