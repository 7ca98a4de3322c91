package authkit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	authkit "github.com/sandunsrimal/authkit"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := authkit.BearerToken(req); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestRequireRole(t *testing.T) {
	signer := newTestSigner()
	handler := signer.RequireAuth(
		authkit.RequireRole(authkit.RoleAdmin)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

	userToken, err := signer.IssueAccessToken(&authkit.Account{
		ID: "acct-1", Role: authkit.RoleUser,
	})
	if err != nil {
		t.Fatal(err)
	}
	adminToken, err := signer.IssueAccessToken(&authkit.Account{
		ID: "acct-2", Role: authkit.RoleAdmin,
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"user role", userToken, http.StatusForbidden},
		{"admin role", adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}
