package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	opts := Options{SortColumns: []string{"name", "created_at"}}

	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"defaults", "", Params{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "desc"}},
		{"explicit values", "?page=3&limit=25&sortBy=name&sortOrder=ASC", Params{Page: 3, Limit: 25, SortBy: "name", SortOrder: "asc"}},
		{"limit above max falls back", "?limit=1000", Params{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "desc"}},
		{"zero limit falls back", "?limit=0", Params{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "desc"}},
		{"negative page", "?page=-2", Params{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "desc"}},
		{"unknown sort column", "?sortBy=password_hash", Params{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "desc"}},
		{"garbage numbers", "?page=abc&limit=x", Params{Page: 1, Limit: 10, SortBy: "created_at", SortOrder: "desc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/items"+tt.query, nil)
			got := Parse(r, opts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseCustomMaxLimit(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/routes?limit=500", nil)
	got := Parse(r, Options{MaxLimit: 500})
	assert.Equal(t, 500, got.Limit)
}

func TestNewPage(t *testing.T) {
	p := Params{Page: 2, Limit: 10}
	page := NewPage([]int{1, 2, 3}, 23, p)

	want := Meta{Page: 2, Limit: 10, Total: 23, TotalPages: 3, HasNext: true, HasPrev: true}
	if diff := cmp.Diff(want, page.Pagination); diff != "" {
		t.Fatalf("meta mismatch (-want +got):\n%s", diff)
	}

	last := NewPage([]int{}, 23, Params{Page: 3, Limit: 10})
	assert.False(t, last.Pagination.HasNext)
	assert.Equal(t, 20, Params{Page: 3, Limit: 10}.Offset())
}

func TestOrderBy(t *testing.T) {
	p := Params{SortBy: "name", SortOrder: "asc"}
	assert.Equal(t, "b.name ASC", p.OrderBy("b."))
}
