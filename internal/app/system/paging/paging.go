// Package paging parses limit/offset parameters for paged JSON lists.
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultLimit is the page size used when the caller does not ask for one.
const DefaultLimit = 50

// MaxLimit caps the page size a caller may request.
const MaxLimit = 200

// Page holds parsed pagination parameters.
type Page struct {
	Limit  int64
	Offset int64
}

// Parse extracts "limit" and "offset" query parameters. Missing or invalid
// values fall back to DefaultLimit / 0; limit is clamped to MaxLimit.
func Parse(r *http.Request) Page {
	p := Page{Limit: DefaultLimit}

	if s := query.Get(r, "limit"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if s := query.Get(r, "offset"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			p.Offset = n
		}
	}
	return p
}
