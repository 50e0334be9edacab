package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runRole(t *testing.T, roles []string, required ...string) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithIdentity(context.Background(), "u", roles))
	c := e.NewContext(req, httptest.NewRecorder())

	return RequireRole(required...)(func(c echo.Context) error { return nil })(c)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		roles    []string
		required []string
		allowed  bool
	}{
		{"matching role", []string{"registrar"}, []string{"registrar", "physician"}, true},
		{"admin bypass", []string{"admin"}, []string{"registrar"}, true},
		{"missing role", []string{"nurse"}, []string{"registrar"}, false},
		{"no roles", nil, []string{"registrar"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runRole(t, tt.roles, tt.required...)
			if tt.allowed && err != nil {
				t.Fatalf("expected access, got %v", err)
			}
			if !tt.allowed {
				httpErr, ok := err.(*echo.HTTPError)
				if !ok || httpErr.Code != http.StatusForbidden {
					t.Fatalf("expected 403, got %v", err)
				}
			}
		})
	}
}
