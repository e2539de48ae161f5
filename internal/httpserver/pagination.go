package httpserver

import (
	"net/url"
	"strconv"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// getPagination reads limit/page query params, clamping limit to [1,100]
// and page to >= 1.
func getPagination(query url.Values) (limit, page int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(query.Get("limit")); err == nil {
		limit = v
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	page = 1
	if v, err := strconv.Atoi(query.Get("page")); err == nil && v > 1 {
		page = v
	}

	return limit, page
}
