package httpapi

import (
	"net/http"
	"strconv"

	"github.com/stockroomhq/stockroom/internal/store"
)

// maxPageSize caps the limit query parameter.
const maxPageSize = 100

// parseListParams reads pagination and ordering query parameters.
// Unset or invalid values fall back to the store defaults.
func parseListParams(r *http.Request) store.ListParams {
	q := r.URL.Query()

	var params store.ListParams

	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		if limit > maxPageSize {
			limit = maxPageSize
		}
		params.Limit = limit
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		params.Page = page
	}

	params.SortBy = q.Get("sort_by")

	switch store.SortOrder(q.Get("order_by")) {
	case store.SortAsc:
		params.OrderBy = store.SortAsc
	case store.SortDesc:
		params.OrderBy = store.SortDesc
	}

	if archived, err := strconv.ParseBool(q.Get("include_archived")); err == nil {
		params.IncludeArchived = archived
	}

	params.ApplyDefaults()
	return params
}
