package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/herald/policy"
	"github.com/xraph/herald/role"
)

func (a *API) registerPolicyRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("policies"))

	if err := g.GET("/policies", a.basePolicies,
		forge.WithSummary("Base policies"),
		forge.WithDescription("Returns the policy values instances get without any role."),
		forge.WithOperationID("basePolicies"),
		forge.WithResponseSchema(http.StatusOK, "Policy set", policy.Set{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/instances/:instanceId/policies", a.instancePolicies,
		forge.WithSummary("Instance policies"),
		forge.WithDescription("Returns the effective policies of an instance."),
		forge.WithOperationID("instancePolicies"),
		forge.WithResponseSchema(http.StatusOK, "Policy set", policy.Set{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/instances/:instanceId/roles", a.instanceRoles,
		forge.WithSummary("Instance roles"),
		forge.WithDescription("Returns the roles in effect for an instance, assigned and conditional."),
		forge.WithOperationID("instanceRoles"),
		forge.WithResponseSchema(http.StatusOK, "Role list", []*role.Role{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) basePolicies(ctx forge.Context, _ *struct{}) (policy.Set, error) {
	set, err := a.eng.BasePolicies(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}
	return set, ctx.JSON(http.StatusOK, set)
}

func (a *API) instancePolicies(ctx forge.Context, _ *InstanceRequest) (policy.Set, error) {
	set, err := a.eng.ResolvePolicies(ctx.Context(), ctx.Param("instanceId"))
	if err != nil {
		return nil, mapError(err)
	}
	return set, ctx.JSON(http.StatusOK, set)
}

func (a *API) instanceRoles(ctx forge.Context, _ *InstanceRequest) ([]*role.Role, error) {
	roles, err := a.eng.ApplicableRoles(ctx.Context(), ctx.Param("instanceId"))
	if err != nil {
		return nil, mapError(err)
	}
	if roles == nil {
		roles = []*role.Role{}
	}
	return roles, ctx.JSON(http.StatusOK, roles)
}
