// Package middleware holds the chi middleware shared by the protected routes.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/matiasleandrokruk/explorer/internal/api/ctxkeys"
	domainauth "github.com/matiasleandrokruk/explorer/internal/domain/auth"
	pkgauth "github.com/matiasleandrokruk/explorer/pkg/auth"
)

// UserLookup resolves the token subject to an active account.
// domainauth.AuthService satisfies this interface.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*domainauth.User, error)
}

// AuthMiddleware validates the Bearer access token and injects the caller into context.
//
// Flow:
//  1. Read "Authorization: Bearer <token>"; missing → 401 "Not authenticated"
//  2. Parse the token as an access token → 401 with the pkg/auth message
//  3. Look up the subject; unknown or inactive → 401 "User not found"
//  4. Inject ctxkeys.Identity with the stored role and call next
func AuthMiddleware(issuer *pkgauth.Issuer, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearerToken(r)
			if tokenString == "" {
				writeUnauthorized(w, "Not authenticated")
				return
			}

			claims, err := issuer.Parse(tokenString, pkgauth.TokenTypeAccess)
			if err != nil {
				writeUnauthorized(w, pkgauth.Message(err))
				return
			}

			user, err := users.GetUserByUsername(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, domainauth.ErrUserNotFound) {
					writeUnauthorized(w, "User not found")
					return
				}
				writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			// the role comes from the store so a demotion applies before the token expires
			ctx := ctxkeys.WithIdentity(r.Context(), ctxkeys.Identity{
				UserID:   user.ID,
				Username: user.Username,
				Role:     user.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects callers without the admin role. It must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := ctxkeys.GetIdentity(r.Context())
		if err != nil {
			writeUnauthorized(w, "Not authenticated")
			return
		}
		if id.Role != domainauth.RoleAdmin {
			writeJSONError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractBearerToken returns "" when the header is missing, uses another scheme, or carries no token.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	// Must start with "Bearer " (case-sensitive per RFC 7235)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSONError(w, http.StatusUnauthorized, message)
}

// writeJSONError uses the same {"error": ...} shape as the handlers package.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
