package api

import (
	"context"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/herald/role"
)

func (a *API) registerRoleRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("roles"))

	if err := g.POST("/roles", a.createRole,
		forge.WithSummary("Create role"),
		forge.WithDescription("Creates a new instance role."),
		forge.WithOperationID("createRole"),
		forge.WithRequestSchema(CreateRoleRequest{}),
		forge.WithCreatedResponse(&RoleResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles/:roleId", a.getRole,
		forge.WithSummary("Get role"),
		forge.WithDescription("Returns a role and how many instances hold it."),
		forge.WithOperationID("getRole"),
		forge.WithResponseSchema(http.StatusOK, "Role details", &RoleResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/roles/:roleId", a.updateRole,
		forge.WithSummary("Update role"),
		forge.WithDescription("Updates an existing role."),
		forge.WithOperationID("updateRole"),
		forge.WithRequestSchema(UpdateRoleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated role", &RoleResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/roles/:roleId", a.deleteRole,
		forge.WithSummary("Delete role"),
		forge.WithDescription("Deletes a role and all of its assignments."),
		forge.WithOperationID("deleteRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/roles", a.listRoles,
		forge.WithSummary("List roles"),
		forge.WithDescription("Lists roles ordered by display order."),
		forge.WithOperationID("listRoles"),
		forge.WithRequestSchema(ListRolesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Role list", &ListResponse[*RoleResponse]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createRole(ctx forge.Context, req *CreateRoleRequest) (*RoleResponse, error) {
	if req.Name == "" {
		return nil, forge.BadRequest("name is required")
	}

	r, err := a.eng.CreateRole(ctx.Context(), req.toRole(), moderator(ctx))
	if err != nil {
		return nil, mapError(err)
	}

	resp := &RoleResponse{Role: r}
	return resp, ctx.JSON(http.StatusCreated, resp)
}

func (a *API) getRole(ctx forge.Context, _ *GetRoleRequest) (*RoleResponse, error) {
	roleID, err := roleIDParam(ctx)
	if err != nil {
		return nil, err
	}

	r, err := a.eng.GetRole(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(err)
	}

	resp, err := a.roleResponse(ctx.Context(), r)
	if err != nil {
		return nil, mapError(err)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) updateRole(ctx forge.Context, req *UpdateRoleRequest) (*RoleResponse, error) {
	roleID, err := roleIDParam(ctx)
	if err != nil {
		return nil, err
	}

	r, err := a.eng.GetRole(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(err)
	}
	req.apply(r)

	updated, err := a.eng.UpdateRole(ctx.Context(), r, moderator(ctx))
	if err != nil {
		return nil, mapError(err)
	}

	resp, err := a.roleResponse(ctx.Context(), updated)
	if err != nil {
		return nil, mapError(err)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) deleteRole(ctx forge.Context, _ *GetRoleRequest) (*struct{}, error) {
	roleID, err := roleIDParam(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.eng.DeleteRole(ctx.Context(), roleID, moderator(ctx)); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRoles(ctx forge.Context, req *ListRolesRequest) (*ListResponse[*RoleResponse], error) {
	if req.Target != "" && !role.Target(req.Target).Valid() {
		return nil, forge.BadRequest("invalid target")
	}
	filter := &role.ListFilter{
		Target: role.Target(req.Target),
		Search: req.Search,
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	}

	roles, total, err := a.eng.ListRoles(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*RoleResponse]{
		Items:  make([]*RoleResponse, 0, len(roles)),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for _, r := range roles {
		item, err := a.roleResponse(ctx.Context(), r)
		if err != nil {
			return nil, mapError(err)
		}
		resp.Items = append(resp.Items, item)
	}

	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) roleResponse(ctx context.Context, r *role.Role) (*RoleResponse, error) {
	n, err := a.eng.CountInstances(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return &RoleResponse{Role: r, InstancesCount: n}, nil
}
