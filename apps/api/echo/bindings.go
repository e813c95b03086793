package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/campus/core"
)

var orderingParam = "ordering"

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	CountResponse struct {
		Count int64 `json:"count"`
	}

	DestroyMultipleRequest struct {
		IDs []int64 `query:"id"`
	}
)

// bindListQuery reads the `where`, `orderBy`, `skip` and `take` query params.
// `ordering=-created_at,name` is accepted when `orderBy` is not provided.
func bindListQuery(ctx echo.Context) (core.ListQuery, error) {
	q, err := core.ParseListQuery(
		ctx.QueryParam("where"),
		ctx.QueryParam("orderBy"),
		ctx.QueryParam("skip"),
		ctx.QueryParam("take"),
	)
	if err != nil {
		return q, err
	}
	if len(q.OrderBy) == 0 {
		if val := ctx.QueryParam(orderingParam); val != "" {
			q.OrderBy = core.ParseOrdering(val)
		}
	}
	return q, nil
}

// paramID parses a positive integer path param. Invalid ids can not match anything: 404.
func paramID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// list never renders nil slices as `null`.
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
