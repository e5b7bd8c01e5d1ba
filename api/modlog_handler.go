package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/herald/modlog"
)

func (a *API) registerModLogRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("moderation-logs"))

	return g.GET("/moderation-logs", a.listModLogs,
		forge.WithSummary("Query moderation logs"),
		forge.WithDescription("Returns role moderation actions, newest first."),
		forge.WithOperationID("listModerationLogs"),
		forge.WithRequestSchema(ListModLogsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Moderation log list", &ListResponse[*modlog.Entry]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listModLogs(ctx forge.Context, req *ListModLogsRequest) (*ListResponse[*modlog.Entry], error) {
	filter, err := req.filter()
	if err != nil {
		return nil, forge.BadRequest(err.Error())
	}

	logs, total, err := a.eng.ListModLogs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*modlog.Entry]{Items: logs, Total: total, Limit: filter.Limit, Offset: filter.Offset}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (r *ListModLogsRequest) filter() (*modlog.QueryFilter, error) {
	filter := &modlog.QueryFilter{
		ModeratorID: r.ModeratorID,
		Type:        modlog.Type(r.Type),
		Limit:       defaultLimit(r.Limit),
		Offset:      r.Offset,
	}
	var err error
	if filter.After, err = parseTime("after", r.After); err != nil {
		return nil, err
	}
	if filter.Before, err = parseTime("before", r.Before); err != nil {
		return nil, err
	}
	return filter, nil
}
