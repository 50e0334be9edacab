package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxWithQuery(q string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/"+q, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(ctxWithQuery(""))
	if p.Limit != DefaultLimit {
		t.Errorf("expected limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(ctxWithQuery("?limit=10&offset=30"))
	if p.Limit != 10 || p.Offset != 30 {
		t.Errorf("expected 10/30, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := FromContext(ctxWithQuery("?limit=100000"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	p := FromContext(ctxWithQuery("?offset=-5"))
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name    string
		params  Params
		want    []int
		hasMore bool
	}{
		{"first page", Params{Limit: 2, Offset: 0}, []int{1, 2}, true},
		{"middle page", Params{Limit: 2, Offset: 2}, []int{3, 4}, true},
		{"last page", Params{Limit: 2, Offset: 4}, []int{5}, false},
		{"past the end", Params{Limit: 2, Offset: 10}, []int{}, false},
		{"everything", Params{Limit: 50, Offset: 0}, []int{1, 2, 3, 4, 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Page(items, tt.params)
			if resp.Total != 5 {
				t.Errorf("expected total 5, got %d", resp.Total)
			}
			if resp.HasMore != tt.hasMore {
				t.Errorf("expected has_more %v, got %v", tt.hasMore, resp.HasMore)
			}
			if len(resp.Data) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, resp.Data)
			}
			for i := range tt.want {
				if resp.Data[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, resp.Data)
				}
			}
		})
	}
}

func TestPage_EmptyInputSerialisesAsArray(t *testing.T) {
	resp := Page[string](nil, Params{Limit: 10})
	if resp.Data == nil {
		t.Error("expected non-nil data slice")
	}
}
