// Package client is a Go client for the ticket API. It mirrors the
// front-end contract: an immutable query value is the single source of
// truth for list parameters, list responses are cached per parameter
// set, and every mutation invalidates the cache so the next read
// reflects server state.
package client

import (
	"net/url"
	"strconv"
)

// Query is the canonical set of filter and pagination parameters for
// the ticket list. The zero value is not useful; start from NewQuery.
// Queries are value types: the With* methods return modified copies
// and never mutate the receiver. Changing anything other than page or
// limit resets the page to 1, so a filter change can never leave the
// view on a page that no longer exists.
type Query struct {
	Status     string
	Priority   string
	Department string
	Page       int
	Limit      int
}

// NewQuery returns the default query: no filters, first page, 20 per
// page.
func NewQuery() Query {
	return Query{Page: 1, Limit: 20}
}

// WithStatus returns a copy filtered by status, back on page 1.
func (q Query) WithStatus(status string) Query {
	q.Status = status
	q.Page = 1
	return q
}

// WithPriority returns a copy filtered by priority, back on page 1.
func (q Query) WithPriority(priority string) Query {
	q.Priority = priority
	q.Page = 1
	return q
}

// WithDepartment returns a copy filtered by department, back on page 1.
func (q Query) WithDepartment(department string) Query {
	q.Department = department
	q.Page = 1
	return q
}

// WithPage returns a copy on the given page.
func (q Query) WithPage(page int) Query {
	if page < 1 {
		page = 1
	}
	q.Page = page
	return q
}

// WithLimit returns a copy with the given page size. The current page
// is kept; only filter changes reset it.
func (q Query) WithLimit(limit int) Query {
	if limit < 1 {
		limit = 20
	}
	q.Limit = limit
	return q
}

// Values encodes the query as URL parameters. Empty filters are
// omitted; page and limit are always present.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Priority != "" {
		v.Set("priority", q.Priority)
	}
	if q.Department != "" {
		v.Set("department", q.Department)
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 20
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	return v
}

// Key returns the canonical encoding of the query. Two queries with
// the same parameters always produce the same key, which the client
// uses as its cache key and which doubles as a shareable query string.
func (q Query) Key() string {
	return q.Values().Encode()
}
