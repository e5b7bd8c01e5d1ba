package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/herald/assignment"
)

func (a *API) registerAssignmentRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("assignments"))

	if err := g.POST("/roles/:roleId/assign", a.assignRole,
		forge.WithSummary("Assign role"),
		forge.WithDescription("Assigns a manual role to an instance, optionally until expires_at."),
		forge.WithOperationID("assignRole"),
		forge.WithRequestSchema(AssignRoleRequest{}),
		forge.WithCreatedResponse(&assignment.Assignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/roles/:roleId/unassign", a.unassignRole,
		forge.WithSummary("Unassign role"),
		forge.WithDescription("Removes a role from an instance."),
		forge.WithOperationID("unassignRole"),
		forge.WithRequestSchema(UnassignRoleRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/roles/:roleId/assignments", a.listRoleAssignments,
		forge.WithSummary("List role assignments"),
		forge.WithDescription("Lists the instances a role is assigned to."),
		forge.WithOperationID("listRoleAssignments"),
		forge.WithRequestSchema(ListRoleAssignmentsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Assignment list", []*assignment.Assignment{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) assignRole(ctx forge.Context, req *AssignRoleRequest) (*assignment.Assignment, error) {
	roleID, err := roleIDParam(ctx)
	if err != nil {
		return nil, err
	}
	if req.InstanceID == "" {
		return nil, forge.BadRequest("instance_id is required")
	}
	expiresAt, err := parseTime("expires_at", req.ExpiresAt)
	if err != nil {
		return nil, forge.BadRequest(err.Error())
	}

	if err := a.checkInstance(ctx.Context(), req.InstanceID); err != nil {
		return nil, mapError(err)
	}

	// An assignment that would already be expired changes nothing.
	if expiresAt != nil && !expiresAt.After(a.eng.Now()) {
		return nil, ctx.NoContent(http.StatusNoContent)
	}

	ass, err := a.eng.Assign(ctx.Context(), req.InstanceID, roleID, expiresAt, moderator(ctx))
	if err != nil {
		return nil, mapError(err)
	}

	return ass, ctx.JSON(http.StatusCreated, ass)
}

func (a *API) unassignRole(ctx forge.Context, req *UnassignRoleRequest) (*struct{}, error) {
	roleID, err := roleIDParam(ctx)
	if err != nil {
		return nil, err
	}
	if req.InstanceID == "" {
		return nil, forge.BadRequest("instance_id is required")
	}

	if err := a.checkInstance(ctx.Context(), req.InstanceID); err != nil {
		return nil, mapError(err)
	}

	if err := a.eng.Unassign(ctx.Context(), req.InstanceID, roleID, moderator(ctx)); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRoleAssignments(ctx forge.Context, req *ListRoleAssignmentsRequest) ([]*assignment.Assignment, error) {
	roleID, err := roleIDParam(ctx)
	if err != nil {
		return nil, err
	}

	assignments, err := a.eng.RoleAssignments(ctx.Context(), roleID, defaultLimit(req.Limit), req.Offset)
	if err != nil {
		return nil, mapError(err)
	}

	return assignments, ctx.JSON(http.StatusOK, assignments)
}
