package api

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name        string
		queryParams map[string]string
		wantLimit   int
		wantOffset  int
	}{
		{
			name:        "no parameters - use defaults",
			queryParams: map[string]string{},
			wantLimit:   1000,
			wantOffset:  0,
		},
		{
			name: "custom limit and offset",
			queryParams: map[string]string{
				"limit":  "50",
				"offset": "25",
			},
			wantLimit:  50,
			wantOffset: 25,
		},
		{
			name: "limit exceeds max - cap at 1000",
			queryParams: map[string]string{
				"limit": "5000",
			},
			wantLimit:  1000,
			wantOffset: 0,
		},
		{
			name: "negative limit - use default",
			queryParams: map[string]string{
				"limit": "-10",
			},
			wantLimit:  1000,
			wantOffset: 0,
		},
		{
			name: "negative offset - use default",
			queryParams: map[string]string{
				"offset": "-5",
			},
			wantLimit:  1000,
			wantOffset: 0,
		},
		{
			name: "invalid limit - use default",
			queryParams: map[string]string{
				"limit": "abc",
			},
			wantLimit:  1000,
			wantOffset: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest("GET", "/", nil)
			q := req.URL.Query()
			for k, v := range tt.queryParams {
				q.Add(k, v)
			}
			req.URL.RawQuery = q.Encode()
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			gotLimit, gotOffset := parsePagination(c)

			if gotLimit != tt.wantLimit {
				t.Errorf("parsePagination() limit = %v, want %v", gotLimit, tt.wantLimit)
			}
			if gotOffset != tt.wantOffset {
				t.Errorf("parsePagination() offset = %v, want %v", gotOffset, tt.wantOffset)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}

	tests := []struct {
		name      string
		limit     int
		offset    int
		wantCount int
		wantFirst string
	}{
		{name: "first page", limit: 5, offset: 0, wantCount: 5, wantFirst: "A"},
		{name: "second page", limit: 5, offset: 5, wantCount: 5, wantFirst: "F"},
		{name: "partial last page", limit: 7, offset: 7, wantCount: 3, wantFirst: "H"},
		{name: "offset beyond length", limit: 5, offset: 20, wantCount: 0},
		{name: "limit larger than slice", limit: 100, offset: 0, wantCount: 10, wantFirst: "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paginate(items, tt.limit, tt.offset)

			if len(got) != tt.wantCount {
				t.Errorf("paginate() returned %d items, want %d", len(got), tt.wantCount)
			}
			if tt.wantCount > 0 && got[0] != tt.wantFirst {
				t.Errorf("paginate() first item = %v, want %v", got[0], tt.wantFirst)
			}
			if got == nil {
				t.Errorf("paginate() returned nil, want empty slice")
			}
		})
	}
}

func TestPage_SetsTotal(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/?limit=2&offset=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	got := page(c, []int{1, 2, 3, 4})

	if len(got) != 2 || got[0] != 2 {
		t.Errorf("page() = %v, want [2 3]", got)
	}
	if total := rec.Header().Get(HeaderTotalCount); total != "4" {
		t.Errorf("%s = %q, want 4", HeaderTotalCount, total)
	}
}
