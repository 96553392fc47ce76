package api

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	maxPageLimit = 1000

	// HeaderTotalCount carries the size of a list before pagination.
	HeaderTotalCount = "X-Total-Count"
)

// parsePagination parses limit and offset from query parameters.
// Limit defaults to and is capped at 1000, offset defaults to 0.
func parsePagination(c echo.Context) (limit, offset int) {
	limit = maxPageLimit
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 && parsed < maxPageLimit {
			limit = parsed
		}
	}

	offset = 0
	if offsetParam := c.QueryParam("offset"); offsetParam != "" {
		if parsed, err := strconv.Atoi(offsetParam); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}

// paginate returns the page of items selected by limit and offset.
func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}

	end := offset + limit
	if end > len(items) {
		end = len(items)
	}

	return items[offset:end]
}

// page applies the request's pagination to items and reports the total.
func page[T any](c echo.Context, items []T) []T {
	limit, offset := parsePagination(c)
	c.Response().Header().Set(HeaderTotalCount, strconv.Itoa(len(items)))
	return paginate(items, limit, offset)
}
