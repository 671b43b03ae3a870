// AngelaMos | 2026
// request.go

package core

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

func QueryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}

func PageFromRequest(r *http.Request) PageParams {
	p := PageParams{
		Page:     QueryInt(r, "page", 1),
		PageSize: QueryInt(r, "page_size", 20),
	}
	p.Normalize()
	return p
}

func IsValidID(id string) bool {
	return uuid.Validate(id) == nil
}
