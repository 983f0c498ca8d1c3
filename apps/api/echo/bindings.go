package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chuoapp/chuo/core"
)

// bindPagination reads `?page&limit` and normalizes out-of-range values.
func bindPagination(ctx echo.Context) core.Pagination {
	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	p := core.Pagination{Page: page, Limit: limit}
	p.Clean()
	return p
}

// bindID parses the `:id` path param. A malformed id behaves like a missing
// record rather than a bad request, matching cascade-deleted lookups.
func bindID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		return 0, errHttpNotFound
	}
	return id, nil
}

func bindAll(ctx echo.Context) bool {
	all, _ := strconv.ParseBool(ctx.QueryParam("all"))
	return all
}
