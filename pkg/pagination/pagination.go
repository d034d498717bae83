// Package pagination parses list query parameters and builds page metadata.
package pagination

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params are the normalized paging and sorting inputs of a list request.
type Params struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// Options constrain parsing for one resource.
type Options struct {
	MaxLimit    int
	SortColumns []string
	DefaultSort string
}

// Meta is the pagination block of a paginated response.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Page is one page of results.
type Page[T any] struct {
	Data       []T  `json:"data"`
	Pagination Meta `json:"pagination"`
}

// Parse reads page, limit, sortBy and sortOrder from the query string.
// Out-of-range limits fall back to the default rather than failing.
func Parse(r *http.Request, opts Options) Params {
	q := r.URL.Query()
	return Normalize(Params{
		Page:      atoi(q.Get("page")),
		Limit:     atoi(q.Get("limit")),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}, opts)
}

// Normalize applies defaults and bounds to p.
func Normalize(p Params, opts Options) Params {
	maxLimit := opts.MaxLimit
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 || p.Limit > maxLimit {
		p.Limit = DefaultLimit
	}
	defaultSort := opts.DefaultSort
	if defaultSort == "" {
		defaultSort = "created_at"
	}
	if p.SortBy == "" || !slices.Contains(opts.SortColumns, p.SortBy) {
		p.SortBy = defaultSort
	}
	p.SortOrder = strings.ToLower(p.SortOrder)
	if p.SortOrder != "asc" {
		p.SortOrder = "desc"
	}
	return p
}

// Offset is the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// OrderBy renders an ORDER BY fragment. SortBy is already allowlisted by
// Normalize, so it is safe to interpolate.
func (p Params) OrderBy(prefix string) string {
	return prefix + p.SortBy + " " + strings.ToUpper(p.SortOrder)
}

// NewPage builds a page and its metadata.
func NewPage[T any](items []T, total int, p Params) *Page[T] {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return &Page[T]{
		Data: items,
		Pagination: Meta{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    p.Page < totalPages,
			HasPrev:    p.Page > 1,
		},
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
