package herald

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/xraph/herald/assignment"
	"github.com/xraph/herald/condition"
	"github.com/xraph/herald/instance"
	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
)

// BasePolicies returns the baseline of every registered policy overlaid
// with the configured defaults.
func (e *Engine) BasePolicies(ctx context.Context) (policy.Set, error) {
	defaults, err := e.defaults.InstancePolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("herald: load default policies: %w", err)
	}
	return policy.Baseline().Overlay(defaults), nil
}

// ResolvePolicies returns the effective policy set for an instance. An empty
// instanceID yields the base set.
func (e *Engine) ResolvePolicies(ctx context.Context, instanceID string) (set policy.Set, err error) {
	start := time.Now()
	defer func() {
		e.plugins.EmitPoliciesResolved(ctx, instanceID, set, time.Since(start), err)
	}()

	base, err := e.BasePolicies(ctx)
	if err != nil {
		return nil, err
	}
	if instanceID == "" {
		return base, nil
	}
	roles, err := e.applicableRoles(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return resolve(base, roles), nil
}

// resolve folds the overrides of roles over base, one policy at a time.
func resolve(base policy.Set, roles []*role.Role) policy.Set {
	out := base.Clone()
	if len(roles) == 0 {
		return out
	}
	for _, def := range policy.Definitions() {
		var overrides []policy.Override
		for _, r := range roles {
			if o, ok := r.Policies[def.Name]; ok {
				overrides = append(overrides, o)
			}
		}
		if len(overrides) == 0 {
			continue
		}
		out[def.Name] = policy.Combine(def, base[def.Name], overrides)
	}
	return out
}

// ApplicableRoles returns the roles currently in effect for an instance:
// its live manual assignments plus the conditional roles it matches,
// ordered by display order then ID.
func (e *Engine) ApplicableRoles(ctx context.Context, instanceID string) ([]*role.Role, error) {
	roles, err := e.applicableRoles(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	out := make([]*role.Role, len(roles))
	for i, r := range roles {
		out[i] = r.Clone()
	}
	return out, nil
}

func (e *Engine) applicableRoles(ctx context.Context, instanceID string) ([]*role.Role, error) {
	all, err := e.allRoles(ctx)
	if err != nil {
		return nil, wrap("list roles", err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	rows, err := e.cachedAssignments(ctx, instanceID)
	if err != nil {
		return nil, wrap("list assignments", err)
	}
	now := e.now()
	assigned := make(map[string]struct{}, len(rows))
	for _, a := range assignment.Live(rows, now) {
		assigned[a.RoleID.String()] = struct{}{}
	}

	var (
		out         []*role.Role
		conditional []*role.Role
	)
	for _, r := range all {
		if r.IsConditional() {
			conditional = append(conditional, r)
			continue
		}
		if _, ok := assigned[r.ID.String()]; ok {
			out = append(out, r)
		}
	}

	if len(conditional) > 0 {
		m, ok, err := e.instanceMetrics(ctx, instanceID)
		if err != nil {
			return nil, err
		}
		if ok {
			for _, r := range conditional {
				if condition.Evaluate(m, r.CondFormula, now) {
					out = append(out, r)
				}
			}
		}
	}

	slices.SortFunc(out, func(a, b *role.Role) int {
		if c := cmp.Compare(a.DisplayOrder, b.DisplayOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

// instanceMetrics fetches the counters conditional roles are matched
// against. An unknown instance, or no provider at all, matches nothing.
func (e *Engine) instanceMetrics(ctx context.Context, instanceID string) (condition.Metrics, bool, error) {
	if e.instances == nil {
		return condition.Metrics{}, false, nil
	}
	inst, err := e.instances.GetInstance(ctx, instanceID)
	if errors.Is(err, instance.ErrNotFound) {
		e.logger.Debug("conditional roles skipped for unknown instance", "instance_id", instanceID)
		return condition.Metrics{}, false, nil
	}
	if err != nil {
		return condition.Metrics{}, false, fmt.Errorf("herald: get instance %s: %w", instanceID, err)
	}
	return inst.Metrics(), true, nil
}

// InstanceAssignments returns the live assignments of an instance.
func (e *Engine) InstanceAssignments(ctx context.Context, instanceID string) ([]*assignment.Assignment, error) {
	rows, err := e.cachedAssignments(ctx, instanceID)
	if err != nil {
		return nil, wrap("list assignments", err)
	}
	live := assignment.Live(rows, e.now())
	out := make([]*assignment.Assignment, len(live))
	for i, a := range live {
		cp := *a
		out[i] = &cp
	}
	return out, nil
}
