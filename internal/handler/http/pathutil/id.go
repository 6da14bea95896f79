// Package pathutil reads values out of routed request paths.
package pathutil

import (
	"errors"
	"net/http"
	"strconv"
)

// ErrInvalidID is returned when the ID in the URL path is invalid.
var ErrInvalidID = errors.New("invalid id")

// UnmatchedRoute labels requests no route pattern matched.
const UnmatchedRoute = "unmatched"

// ParseID parses the named path wildcard as a positive int64.
//
//	// mux.Handle("GET /api/news/{id}", h)
//	id, err := pathutil.ParseID(r, "id")
func ParseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// Route returns the pattern the mux matched for r, which keeps metric labels
// and span names bounded. Only valid after the mux has routed r.
func Route(r *http.Request) string {
	if r.Pattern == "" {
		return UnmatchedRoute
	}
	return r.Pattern
}
