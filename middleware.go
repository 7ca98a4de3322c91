package authkit

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const claimsContextKey = contextKey("authkit.claims")

// ClaimsFromContext returns the verified access-token claims placed on the
// request context by RequireAuth, or nil outside a protected handler.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey).(*Claims)
	return claims
}

// ContextWithClaims returns a child context carrying the claims. Exposed for
// tests and non-HTTP transports.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// BearerToken extracts the token from an Authorization: Bearer header.
// Returns "" if the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth verifies the bearer access token and places its claims on the
// request context. Responses distinguish expiry from invalidity: an expired
// token gets a 401 with "isExpired": true so clients know to refresh rather
// than re-login.
func (s *Signer) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			writeAuthFailure(w, "Authentication required", false)
			return
		}

		claims, err := s.Verify(token, TokenKindAccess)
		if err == ErrTokenExpired {
			writeAuthFailure(w, "Token expired", true)
			return
		}
		if err != nil {
			writeAuthFailure(w, "Invalid token", false)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// RequireRole allows the request through only when the verified claims carry
// one of the given roles. Must run inside RequireAuth.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeAuthFailure(w, "Authentication required", false)
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": "Insufficient permissions",
			})
		})
	}
}

func writeAuthFailure(w http.ResponseWriter, message string, expired bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	body := map[string]any{
		"success": false,
		"message": message,
	}
	if expired {
		body["isExpired"] = true
	}
	json.NewEncoder(w).Encode(body)
}
